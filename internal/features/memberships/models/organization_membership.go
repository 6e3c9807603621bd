package memberships_models

import (
	memberships_enums "memberledger/internal/features/memberships/enums"

	"github.com/google/uuid"
)

const FieldRole = "role"

type OrganizationMembership struct {
	MembershipBase

	UserID         uuid.UUID `json:"userId"         gorm:"column:user_id"`
	OrganizationID uuid.UUID `json:"organizationId" gorm:"column:organization_id"`

	Role memberships_enums.OrganizationRole `json:"role" gorm:"column:role"`
}

var organizationMembershipFields = FieldSet[OrganizationMembership]{
	FieldRole: EnumField(
		func(m *OrganizationMembership) *memberships_enums.OrganizationRole { return &m.Role },
		memberships_enums.OrganizationRole.IsValid,
	),
}

func (OrganizationMembership) TableName() string {
	return "organization_memberships"
}

func (OrganizationMembership) VariantName() string {
	return "organization_membership"
}

func (OrganizationMembership) SubjectColumn() string {
	return "user_id"
}

func (OrganizationMembership) ParentColumn() string {
	return "organization_id"
}

func (OrganizationMembership) SubjectKind() memberships_enums.SubjectKind {
	return memberships_enums.SubjectKindUser
}

func (m *OrganizationMembership) SubjectID() uuid.UUID {
	return m.UserID
}

func (m *OrganizationMembership) ParentID() uuid.UUID {
	return m.OrganizationID
}

func (*OrganizationMembership) RoleFields() FieldSet[OrganizationMembership] {
	return organizationMembershipFields
}
