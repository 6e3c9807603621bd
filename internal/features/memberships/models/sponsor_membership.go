package memberships_models

import (
	memberships_enums "memberledger/internal/features/memberships/enums"

	"github.com/google/uuid"
)

const FieldIsPromoted = "is_promoted"

// SponsorMembership links a sponsor profile to a project. It is keyed on a
// profile rather than a user.
type SponsorMembership struct {
	MembershipBase
	Sequenced

	ProfileID uuid.UUID `json:"profileId" gorm:"column:profile_id"`
	ProjectID uuid.UUID `json:"projectId" gorm:"column:project_id"`

	IsPromoted bool   `json:"isPromoted" gorm:"column:is_promoted"`
	Label      string `json:"label"      gorm:"column:label"`
}

var sponsorMembershipFields = FieldSet[SponsorMembership]{
	FieldIsPromoted: BoolField(func(m *SponsorMembership) *bool { return &m.IsPromoted }),
	FieldLabel:      StringField(func(m *SponsorMembership) *string { return &m.Label }),
}

func (SponsorMembership) TableName() string {
	return "sponsor_memberships"
}

func (SponsorMembership) VariantName() string {
	return "sponsor_membership"
}

func (SponsorMembership) SubjectColumn() string {
	return "profile_id"
}

func (SponsorMembership) ParentColumn() string {
	return "project_id"
}

func (SponsorMembership) SubjectKind() memberships_enums.SubjectKind {
	return memberships_enums.SubjectKindProfile
}

func (m *SponsorMembership) SubjectID() uuid.UUID {
	return m.ProfileID
}

func (m *SponsorMembership) ParentID() uuid.UUID {
	return m.ProjectID
}

func (*SponsorMembership) RoleFields() FieldSet[SponsorMembership] {
	return sponsorMembershipFields
}
