package memberships_enums

type OrganizationRole string

const (
	OrganizationRoleOwner  OrganizationRole = "OWNER"
	OrganizationRoleAdmin  OrganizationRole = "ADMIN"
	OrganizationRoleMember OrganizationRole = "MEMBER"
)

// IsValid validates the OrganizationRole
func (r OrganizationRole) IsValid() bool {
	switch r {
	case OrganizationRoleOwner, OrganizationRoleAdmin, OrganizationRoleMember:
		return true
	default:
		return false
	}
}
