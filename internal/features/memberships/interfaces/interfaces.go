package memberships_interfaces

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogWriter interface {
	WriteAuditLog(tx *gorm.DB, message string, actorID *uuid.UUID, parentID *uuid.UUID) error
}

// MembershipChangeListener is told after a write changed the active members
// of a parent.
type MembershipChangeListener interface {
	OnMembershipsChanged(variant string, parentID uuid.UUID)
}
