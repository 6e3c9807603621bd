package memberships_testing

import (
	"fmt"
	"testing"

	memberships_enums "memberledger/internal/features/memberships/enums"
	memberships_models "memberledger/internal/features/memberships/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var variantTables = []memberships_models.Revisable{
	&memberships_models.ProjectMembership{},
	&memberships_models.ProposalMembership{},
	&memberships_models.SponsorMembership{},
	&memberships_models.OrganizationMembership{},
}

func NewProjectMembership(userID, projectID uuid.UUID) *memberships_models.ProjectMembership {
	return &memberships_models.ProjectMembership{
		UserID:    userID,
		ProjectID: projectID,
	}
}

func NewProposalMembership(userID, proposalID uuid.UUID) *memberships_models.ProposalMembership {
	return &memberships_models.ProposalMembership{
		UserID:     userID,
		ProposalID: proposalID,
	}
}

func NewSponsorMembership(profileID, projectID uuid.UUID) *memberships_models.SponsorMembership {
	return &memberships_models.SponsorMembership{
		ProfileID: profileID,
		ProjectID: projectID,
	}
}

func NewOrganizationMembership(
	userID, organizationID uuid.UUID,
	role memberships_enums.OrganizationRole,
) *memberships_models.OrganizationMembership {
	return &memberships_models.OrganizationMembership{
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           role,
	}
}

// AssertAtMostOneActive fails the test if any (subject, parent) pair in any
// membership table has more than one active record.
func AssertAtMostOneActive(t *testing.T, db *gorm.DB) {
	t.Helper()

	for _, variant := range variantTables {
		var duplicates int64
		err := db.Raw(fmt.Sprintf(
			`SELECT COUNT(*) FROM (
				SELECT %[1]s, %[2]s FROM %[3]s
				WHERE revoked_at IS NULL AND record_type <> 'INVITE'
				GROUP BY %[1]s, %[2]s
				HAVING COUNT(*) > 1
			) duplicates`,
			variant.SubjectColumn(),
			variant.ParentColumn(),
			variant.TableName(),
		)).Scan(&duplicates).Error

		assert.NoError(t, err)
		assert.Zero(t, duplicates, "duplicate active records in %s", variant.TableName())
	}
}

// CountRows returns the number of rows of the record's variant in its parent.
func CountRows(t *testing.T, db *gorm.DB, record memberships_models.Revisable) int64 {
	t.Helper()

	var count int64
	err := db.Table(record.TableName()).
		Where(record.ParentColumn()+" = ?", record.ParentID()).
		Count(&count).Error
	assert.NoError(t, err)

	return count
}

// ActiveSeqs maps every active project member of projectID to its seq.
func ActiveSeqs(t *testing.T, db *gorm.DB, projectID uuid.UUID) map[uuid.UUID]int {
	t.Helper()

	var records []memberships_models.ProjectMembership
	err := db.
		Where("project_id = ? AND revoked_at IS NULL AND record_type <> 'INVITE'", projectID).
		Find(&records).Error
	assert.NoError(t, err)

	seqs := make(map[uuid.UUID]int, len(records))
	for _, record := range records {
		if record.Seq != nil {
			seqs[record.UserID] = *record.Seq
		}
	}

	return seqs
}
