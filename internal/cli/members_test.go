package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	memberships_models "memberledger/internal/features/memberships/models"
	memberships_services "memberledger/internal/features/memberships/services"
	memberships_testing "memberledger/internal/features/memberships/testing"
	storage_testing "memberledger/internal/storage/testing"
	"memberledger/internal/util/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ActiveMembers_WritesMembersAsJSON(t *testing.T) {
	db := storage_testing.CreateTestDb(t)
	services := memberships_services.NewMembershipServices(db, nil, nil, 0, logger.GetLogger())

	projectID := uuid.New()
	record := memberships_testing.NewProjectMembership(uuid.New(), projectID)
	record.Label = "Host"
	_, err := services.Projects.Revisions.DirectAdd(record, uuid.New())
	require.NoError(t, err)

	members, err := activeMembers(services, "project", projectID)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeJSON(&out, members))

	var decoded []memberships_models.ProjectMembership
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Host", decoded[0].Label)
	assert.Equal(t, 1, *decoded[0].Seq)
}

func Test_ActiveMembers_WhenVariantUnknown_Fails(t *testing.T) {
	_, err := activeMembers(&memberships_services.MembershipServices{}, "ticket", uuid.New())
	assert.ErrorContains(t, err, "unknown variant")
}

func Test_Resequence_WhenVariantIsNotReorderable_Fails(t *testing.T) {
	err := resequence(&memberships_services.MembershipServices{}, "organization", uuid.New())
	assert.ErrorContains(t, err, "not reorderable")
}

func Test_Resequence_CompactsProjectMembers(t *testing.T) {
	db := storage_testing.CreateTestDb(t)
	services := memberships_services.NewMembershipServices(db, nil, nil, 0, logger.GetLogger())

	projectID, actorID := uuid.New(), uuid.New()

	var records []*memberships_models.ProjectMembership
	for range 3 {
		record, err := services.Projects.Revisions.DirectAdd(
			memberships_testing.NewProjectMembership(uuid.New(), projectID),
			actorID,
		)
		require.NoError(t, err)
		records = append(records, record)
	}

	require.NoError(t, services.Projects.Revisions.Revoke(records[0], actorID))
	require.NoError(t, resequence(services, "project", projectID))

	seqs := memberships_testing.ActiveSeqs(t, db, projectID)
	assert.Equal(t, map[uuid.UUID]int{records[1].UserID: 1, records[2].UserID: 2}, seqs)
}
