package memberships_services

import (
	"maps"

	memberships_models "memberledger/internal/features/memberships/models"

	"github.com/google/uuid"
)

// Amendment stages role changes for a record and writes them as a single
// revision on Commit.
type Amendment[T any, P memberships_models.Membership[T]] struct {
	service *RevisionService[T, P]
	record  P
	actorID uuid.UUID
	changes memberships_models.RoleChanges
}

// AmendBy starts an amendment of record on behalf of actorID.
func (s *RevisionService[T, P]) AmendBy(record P, actorID uuid.UUID) *Amendment[T, P] {
	return &Amendment[T, P]{
		service: s,
		record:  record,
		actorID: actorID,
		changes: memberships_models.RoleChanges{},
	}
}

// Set stages a change. Unknown fields and bad values surface on Commit.
func (a *Amendment[T, P]) Set(field string, value any) *Amendment[T, P] {
	a.changes[field] = value
	return a
}

// Value returns the staged value of field, or the record's current value.
func (a *Amendment[T, P]) Value(field string) (any, error) {
	if value, ok := a.changes[field]; ok {
		return value, nil
	}

	roleField, ok := a.record.RoleFields()[field]
	if !ok {
		return nil, &UnknownFieldError{Variant: a.record.VariantName(), Field: field}
	}

	return roleField.Get(a.record), nil
}

func (a *Amendment[T, P]) Changes() memberships_models.RoleChanges {
	return maps.Clone(a.changes)
}

// Commit replaces the record once with every staged change, attributed to
// the actor the amendment was started by.
func (a *Amendment[T, P]) Commit() (P, error) {
	return a.CommitAs(a.actorID)
}

// CommitAs is Commit attributed to actorID.
func (a *Amendment[T, P]) CommitAs(actorID uuid.UUID) (P, error) {
	return a.service.Replace(a.record, actorID, false, a.changes)
}
