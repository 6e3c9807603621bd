package memberships_models

import (
	memberships_enums "memberledger/internal/features/memberships/enums"

	"github.com/google/uuid"
)

const (
	FieldIsEditor   = "is_editor"
	FieldIsPromoter = "is_promoter"
	FieldIsUsher    = "is_usher"
	FieldLabel      = "label"
)

type ProjectMembership struct {
	MembershipBase
	Sequenced

	UserID    uuid.UUID `json:"userId"    gorm:"column:user_id"`
	ProjectID uuid.UUID `json:"projectId" gorm:"column:project_id"`

	IsEditor   bool   `json:"isEditor"   gorm:"column:is_editor"`
	IsPromoter bool   `json:"isPromoter" gorm:"column:is_promoter"`
	IsUsher    bool   `json:"isUsher"    gorm:"column:is_usher"`
	Label      string `json:"label"      gorm:"column:label"`
}

var projectMembershipFields = FieldSet[ProjectMembership]{
	FieldIsEditor:   BoolField(func(m *ProjectMembership) *bool { return &m.IsEditor }),
	FieldIsPromoter: BoolField(func(m *ProjectMembership) *bool { return &m.IsPromoter }),
	FieldIsUsher:    BoolField(func(m *ProjectMembership) *bool { return &m.IsUsher }),
	FieldLabel:      StringField(func(m *ProjectMembership) *string { return &m.Label }),
}

func (ProjectMembership) TableName() string {
	return "project_memberships"
}

func (ProjectMembership) VariantName() string {
	return "project_membership"
}

func (ProjectMembership) SubjectColumn() string {
	return "user_id"
}

func (ProjectMembership) ParentColumn() string {
	return "project_id"
}

func (ProjectMembership) SubjectKind() memberships_enums.SubjectKind {
	return memberships_enums.SubjectKindUser
}

func (m *ProjectMembership) SubjectID() uuid.UUID {
	return m.UserID
}

func (m *ProjectMembership) ParentID() uuid.UUID {
	return m.ProjectID
}

func (*ProjectMembership) RoleFields() FieldSet[ProjectMembership] {
	return projectMembershipFields
}
