package memberships_services

import (
	"fmt"
	"log/slog"

	memberships_interfaces "memberledger/internal/features/memberships/interfaces"
	memberships_models "memberledger/internal/features/memberships/models"
	memberships_repositories "memberledger/internal/features/memberships/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SequenceService keeps the user-controlled order of a parent's active
// members. Every statement it issues leaves (parent, seq) unique among active
// rows, so no deferred constraint is needed.
type SequenceService[T any, P memberships_models.ReorderableMembership[T]] struct {
	db               *gorm.DB
	recordRepository *memberships_repositories.RecordRepository[T, P]
	changeListeners  []memberships_interfaces.MembershipChangeListener
	pending          *PendingChanges
	logger           *slog.Logger
}

func NewSequenceService[T any, P memberships_models.ReorderableMembership[T]](
	db *gorm.DB,
	logger *slog.Logger,
) *SequenceService[T, P] {
	return &SequenceService[T, P]{
		db:               db,
		recordRepository: &memberships_repositories.RecordRepository[T, P]{},
		logger:           logger,
	}
}

func (s *SequenceService[T, P]) AddMembershipChangeListener(listener memberships_interfaces.MembershipChangeListener) {
	s.changeListeners = append(s.changeListeners, listener)
}

// WithTx binds the service to tx. Notifications wait in pending until the
// caller commits and flushes it.
func (s *SequenceService[T, P]) WithTx(tx *gorm.DB, pending *PendingChanges) *SequenceService[T, P] {
	copied := *s
	copied.db = tx
	copied.pending = pending
	return &copied
}

// ReorderBefore moves record to sit directly before other. Nothing happens
// when record already sorts before other.
func (s *SequenceService[T, P]) ReorderBefore(record, other P) error {
	return s.reorder(record, other, true)
}

// ReorderAfter moves record to sit directly after other. Nothing happens when
// record already sorts after other.
func (s *SequenceService[T, P]) ReorderAfter(record, other P) error {
	return s.reorder(record, other, false)
}

// Resequence renumbers the parent's active members 1..n keeping their order.
// Members without a seq are appended at the end.
func (s *SequenceService[T, P]) Resequence(parentID uuid.UUID) error {
	var changed bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		records, err := s.recordRepository.GetActiveForParent(tx, parentID)
		if err != nil {
			return fmt.Errorf("failed to get active members: %w", err)
		}

		// rows only move to smaller free numbers, then unnumbered rows take
		// the slots after the last one
		for i, record := range records {
			want := i + 1
			if record.GetSeq() != nil && *record.GetSeq() == want {
				continue
			}

			if err := s.updateSeq(tx, record, want); err != nil {
				return err
			}

			changed = true
		}

		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		s.notifyChanged(parentID)
	}

	return nil
}

func (s *SequenceService[T, P]) reorder(record, other P, before bool) error {
	if record.ParentID() != other.ParentID() {
		return ErrReorderParentMismatch
	}

	if record.GetSeq() == nil || other.GetSeq() == nil {
		return ErrReorderWithoutSeq
	}

	for _, item := range []P{record, other} {
		if !item.GetBase().IsActive() {
			return revokedError(item.GetBase().ID)
		}
	}

	if record.GetBase().ID == other.GetBase().ID {
		return nil
	}

	restoreRecord := snapshot[T, P](record)
	restoreOther := snapshot[T, P](other)

	var changed bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// the caller's copies may predate other reorders
		recordSeq, err := s.reloadSeq(tx, record)
		if err != nil {
			return err
		}

		otherSeq, err := s.reloadSeq(tx, other)
		if err != nil {
			return err
		}

		if before && recordSeq <= otherSeq {
			return nil
		}
		if !before && recordSeq >= otherSeq {
			return nil
		}

		changed = true

		// moving before walks up from record (descending), moving after walks
		// down (ascending); either way record comes first and other last
		window, err := s.recordRepository.GetSeqWindow(
			tx,
			record.ParentID(),
			min(recordSeq, otherSeq),
			max(recordSeq, otherSeq),
			before,
		)
		if err != nil {
			return fmt.Errorf("failed to get seq window: %w", err)
		}

		// leading siblings that share a boundary value stay where they are
		for len(window) > 0 && window[0].GetBase().ID != record.GetBase().ID {
			window = window[1:]
		}

		if len(window) == 0 {
			return fmt.Errorf("%w: membership %s left its seq window", ErrWriteConflict, record.GetBase().ID)
		}

		vacated := *window[0].GetSeq()

		parking, err := s.recordRepository.NextSeq(tx, record.ParentID())
		if err != nil {
			return fmt.Errorf("failed to get next seq: %w", err)
		}

		if err := s.updateSeq(tx, record, parking); err != nil {
			return err
		}

		for _, item := range window[1:] {
			itemSeq := *item.GetSeq()

			target := item
			if item.GetBase().ID == other.GetBase().ID {
				target = other
			}

			if err := s.updateSeq(tx, target, vacated); err != nil {
				return err
			}

			vacated = itemSeq

			if item.GetBase().ID == other.GetBase().ID {
				break
			}
		}

		return s.updateSeq(tx, record, vacated)
	})
	if err != nil {
		restoreRecord()
		restoreOther()
		return err
	}

	if changed {
		s.notifyChanged(record.ParentID())
	}

	return nil
}

// reloadSeq reads record's current seq and copies it onto record.
func (s *SequenceService[T, P]) reloadSeq(tx *gorm.DB, record P) (int, error) {
	current, err := s.recordRepository.GetByID(tx, record.GetBase().ID)
	if err != nil {
		return 0, fmt.Errorf("failed to get membership: %w", err)
	}

	if current == nil || !current.GetBase().IsActive() {
		return 0, revokedError(record.GetBase().ID)
	}

	if current.GetSeq() == nil {
		return 0, ErrReorderWithoutSeq
	}

	seq := *current.GetSeq()
	record.SetSeq(&seq)

	return seq, nil
}

func (s *SequenceService[T, P]) updateSeq(tx *gorm.DB, record P, seq int) error {
	if err := s.recordRepository.UpdateSeq(tx, record.GetBase().ID, seq); err != nil {
		return fmt.Errorf("failed to update seq of %s: %w", record.GetBase().ID, mapDuplicate(err))
	}

	record.SetSeq(&seq)
	return nil
}

func (s *SequenceService[T, P]) notifyChanged(parentID uuid.UUID) {
	variant := P(new(T)).VariantName()
	if s.pending != nil {
		s.pending.add(s.changeListeners, variant, parentID)
		return
	}

	for _, listener := range s.changeListeners {
		listener.OnMembershipsChanged(variant, parentID)
	}
}

// assignNextSeq gives an active reorderable record the next free seq of its
// parent, unless it already has one.
func assignNextSeq[T any, P memberships_models.Membership[T]](
	tx *gorm.DB,
	recordRepository *memberships_repositories.RecordRepository[T, P],
	record P,
) error {
	reorderable, ok := any(record).(memberships_models.Reorderable)
	if !ok || reorderable.GetSeq() != nil {
		return nil
	}

	seq, err := recordRepository.NextSeq(tx, record.ParentID())
	if err != nil {
		return fmt.Errorf("failed to get next seq: %w", err)
	}

	reorderable.SetSeq(&seq)
	return nil
}
