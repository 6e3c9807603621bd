package memberships_services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAlreadyRevoked        = errors.New("membership record is already revoked")
	ErrNotAnInvite           = errors.New("membership record is not an invite")
	ErrNotInviteSubject      = errors.New("only the invited subject can accept an invite")
	ErrUnknownField          = errors.New("unknown membership field")
	ErrInvalidFieldValue     = errors.New("invalid membership field value")
	ErrMergeTypeMismatch     = errors.New("cannot merge memberships of different variants")
	ErrMergeSameRecord       = errors.New("cannot merge a membership record with itself")
	ErrMembershipExists      = errors.New("subject already has a membership or pending invite in this parent")
	ErrWriteConflict         = errors.New("membership write conflicts with a concurrent change")
	ErrReorderParentMismatch = errors.New("cannot reorder memberships of different parents")
	ErrReorderWithoutSeq     = errors.New("memberships must have a seq to be reordered")
	ErrSameSubject           = errors.New("cannot migrate a subject into itself")
)

type UnknownFieldError struct {
	Variant string
	Field   string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s has no field %q", e.Variant, e.Field)
}

func (e *UnknownFieldError) Unwrap() error {
	return ErrUnknownField
}

type FieldValueError struct {
	Variant string
	Field   string
	Value   any
}

func (e *FieldValueError) Error() string {
	return fmt.Sprintf("invalid value %v (%T) for %s.%s", e.Value, e.Value, e.Variant, e.Field)
}

func (e *FieldValueError) Unwrap() error {
	return ErrInvalidFieldValue
}

// ParentMergeError reports the parent whose conflicting memberships could not
// be merged during a subject migration.
type ParentMergeError struct {
	Variant  string
	ParentID uuid.UUID
	Err      error
}

func (e *ParentMergeError) Error() string {
	return fmt.Sprintf("failed to merge %s records in parent %s: %v", e.Variant, e.ParentID, e.Err)
}

func (e *ParentMergeError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err came from losing a race with another
// writer, in which case the whole operation can be run again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrAlreadyRevoked) || errors.Is(err, ErrWriteConflict)
}

func revokedError(id uuid.UUID) error {
	return fmt.Errorf("%w: %s", ErrAlreadyRevoked, id)
}

// mapDuplicate turns a unique violation into ErrWriteConflict.
func mapDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrWriteConflict, err)
	}

	return err
}
