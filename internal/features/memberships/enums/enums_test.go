package memberships_enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_RecordType_IsValid(t *testing.T) {
	for _, recordType := range []RecordType{
		RecordTypeInvite,
		RecordTypeAccept,
		RecordTypeDirectAdd,
		RecordTypeAmend,
	} {
		assert.True(t, recordType.IsValid(), string(recordType))
	}

	assert.False(t, RecordType("REVOKED").IsValid())
	assert.False(t, RecordType("").IsValid())
}

func Test_OrganizationRole_IsValid(t *testing.T) {
	assert.True(t, OrganizationRoleOwner.IsValid())
	assert.True(t, OrganizationRoleAdmin.IsValid())
	assert.True(t, OrganizationRoleMember.IsValid())
	assert.False(t, OrganizationRole("PROJECT_ADMIN").IsValid())
}
