package memberships_services

import (
	"testing"

	memberships_enums "memberledger/internal/features/memberships/enums"
	memberships_models "memberledger/internal/features/memberships/models"
	memberships_testing "memberledger/internal/features/memberships/testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GetActiveMembers_ReturnsIndependentCopies(t *testing.T) {
	services, _ := createTestServices(t)
	siblings := createSiblings(t, services, "A", "B")

	first, err := services.Projects.Queries.GetActiveMembers(siblings.projectID)
	require.NoError(t, err)
	require.Len(t, first, 2)

	first[0].Label = "changed"

	second, err := services.Projects.Queries.GetActiveMembers(siblings.projectID)
	require.NoError(t, err)
	assert.Equal(t, "A", second[0].Label)
}

func Test_GetActiveMembers_WhenVariantIsNotReorderable_OrdersByGrantTime(t *testing.T) {
	services, _ := createTestServices(t)
	organizations := services.Organizations

	organizationID := uuid.New()
	firstUser, secondUser := uuid.New(), uuid.New()

	_, err := organizations.Revisions.DirectAdd(
		memberships_testing.NewOrganizationMembership(firstUser, organizationID, memberships_enums.OrganizationRoleOwner),
		uuid.New(),
	)
	require.NoError(t, err)

	_, err = organizations.Revisions.DirectAdd(
		memberships_testing.NewOrganizationMembership(secondUser, organizationID, memberships_enums.OrganizationRoleMember),
		uuid.New(),
	)
	require.NoError(t, err)

	members, err := organizations.Queries.GetActiveMembers(organizationID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, firstUser, members[0].UserID)
	assert.Equal(t, secondUser, members[1].UserID)
}

func Test_GetSubjectHistory_IncludesRevokedRecordsAcrossParents(t *testing.T) {
	services, _ := createTestServices(t)
	projects := services.Projects

	actorID, userID := uuid.New(), uuid.New()

	first, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(userID, uuid.New()), actorID)
	require.NoError(t, err)

	_, err = projects.Revisions.Replace(first, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldIsEditor: true,
	})
	require.NoError(t, err)

	second, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(userID, uuid.New()), actorID)
	require.NoError(t, err)
	require.NoError(t, projects.Revisions.Revoke(second, actorID))

	history, err := projects.Queries.GetSubjectHistory(userID)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	active, err := projects.Queries.GetActiveForSubject(userID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].IsEditor)
}

func Test_OnMembershipsChanged_WhenCacheDisabled_IsNoop(t *testing.T) {
	services, _ := createTestServices(t)

	assert.NotPanics(t, func() {
		services.Projects.Queries.OnMembershipsChanged("project_membership", uuid.New())
		services.Projects.Queries.InvalidateParents([]uuid.UUID{uuid.New()})
	})
}
