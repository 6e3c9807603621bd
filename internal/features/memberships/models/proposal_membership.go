package memberships_models

import (
	memberships_enums "memberledger/internal/features/memberships/enums"

	"github.com/google/uuid"
)

const FieldIsUncredited = "is_uncredited"

// ProposalMembership lists the collaborators on a proposal. Uncredited
// collaborators can edit but are hidden from the byline.
type ProposalMembership struct {
	MembershipBase
	Sequenced

	UserID     uuid.UUID `json:"userId"     gorm:"column:user_id"`
	ProposalID uuid.UUID `json:"proposalId" gorm:"column:proposal_id"`

	IsUncredited bool   `json:"isUncredited" gorm:"column:is_uncredited"`
	Label        string `json:"label"        gorm:"column:label"`
}

var proposalMembershipFields = FieldSet[ProposalMembership]{
	FieldIsUncredited: BoolField(func(m *ProposalMembership) *bool { return &m.IsUncredited }),
	FieldLabel:        StringField(func(m *ProposalMembership) *string { return &m.Label }),
}

func (ProposalMembership) TableName() string {
	return "proposal_memberships"
}

func (ProposalMembership) VariantName() string {
	return "proposal_membership"
}

func (ProposalMembership) SubjectColumn() string {
	return "user_id"
}

func (ProposalMembership) ParentColumn() string {
	return "proposal_id"
}

func (ProposalMembership) SubjectKind() memberships_enums.SubjectKind {
	return memberships_enums.SubjectKindUser
}

func (m *ProposalMembership) SubjectID() uuid.UUID {
	return m.UserID
}

func (m *ProposalMembership) ParentID() uuid.UUID {
	return m.ProposalID
}

func (*ProposalMembership) RoleFields() FieldSet[ProposalMembership] {
	return proposalMembershipFields
}
