package memberships_services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	memberships_enums "memberledger/internal/features/memberships/enums"
	memberships_interfaces "memberledger/internal/features/memberships/interfaces"
	memberships_models "memberledger/internal/features/memberships/models"
	memberships_repositories "memberledger/internal/features/memberships/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevisionService owns the revision history of one membership variant. No
// record is ever edited in place: a change revokes the current record and
// inserts its successor in the same transaction.
type RevisionService[T any, P memberships_models.Membership[T]] struct {
	db               *gorm.DB
	recordRepository *memberships_repositories.RecordRepository[T, P]
	auditLogWriter   memberships_interfaces.AuditLogWriter
	changeListeners  []memberships_interfaces.MembershipChangeListener
	pending          *PendingChanges
	logger           *slog.Logger
}

func NewRevisionService[T any, P memberships_models.Membership[T]](
	db *gorm.DB,
	auditLogWriter memberships_interfaces.AuditLogWriter,
	logger *slog.Logger,
) *RevisionService[T, P] {
	return &RevisionService[T, P]{
		db:               db,
		recordRepository: &memberships_repositories.RecordRepository[T, P]{},
		auditLogWriter:   auditLogWriter,
		logger:           logger,
	}
}

func (s *RevisionService[T, P]) AddMembershipChangeListener(listener memberships_interfaces.MembershipChangeListener) {
	s.changeListeners = append(s.changeListeners, listener)
}

// WithTx returns a copy of the service bound to tx. Its operations run as
// savepoints inside the caller's transaction and their change notifications
// are queued in pending, which must not be nil, until the caller flushes it.
func (s *RevisionService[T, P]) WithTx(tx *gorm.DB, pending *PendingChanges) *RevisionService[T, P] {
	copied := *s
	copied.db = tx
	copied.pending = pending
	return &copied
}

// Invite records a pending invite. Invites hold no seq until accepted.
func (s *RevisionService[T, P]) Invite(record P, actorID uuid.UUID) (P, error) {
	if reorderable, ok := any(record).(memberships_models.Reorderable); ok {
		reorderable.SetSeq(nil)
	}

	return s.create(record, actorID, memberships_enums.RecordTypeInvite)
}

func (s *RevisionService[T, P]) DirectAdd(record P, actorID uuid.UUID) (P, error) {
	return s.create(record, actorID, memberships_enums.RecordTypeDirectAdd)
}

// Revoke ends record's membership without a successor.
func (s *RevisionService[T, P]) Revoke(record P, actorID uuid.UUID) error {
	restore := snapshot[T, P](record)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.markRevoked(tx, record, actorID, time.Now().UTC()); err != nil {
			return err
		}

		return s.writeAuditLog(tx, record, actorID, "revoked")
	})
	if err != nil {
		restore()
		return err
	}

	s.notifyChanged(record)
	return nil
}

// Replace revokes record and inserts a successor carrying changes. When record
// is not an invite and nothing would change, record itself is returned and
// nothing is written.
func (s *RevisionService[T, P]) Replace(
	record P,
	actorID uuid.UUID,
	accept bool,
	changes memberships_models.RoleChanges,
) (P, error) {
	restore := snapshot[T, P](record)

	var replacement P
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		replacement, err = s.replace(tx, record, actorID, accept, changes, time.Now().UTC())
		return err
	})
	if err != nil {
		restore()
		return nil, err
	}

	if replacement != record {
		s.notifyChanged(replacement)
	}

	return replacement, nil
}

// Accept turns an invite into an active membership. Only the invited subject
// can accept.
func (s *RevisionService[T, P]) Accept(record P, actorID uuid.UUID) (P, error) {
	if !record.GetBase().IsInvite() {
		return nil, fmt.Errorf("%w: %s", ErrNotAnInvite, record.GetBase().ID)
	}

	if actorID != record.SubjectID() {
		return nil, ErrNotInviteSubject
	}

	return s.Replace(record, actorID, true, nil)
}

// MergeAndReplace folds other into record: an invite is accepted first when
// other is already active, each role field keeps record's value if truthy and
// takes other's otherwise, and other is revoked.
func (s *RevisionService[T, P]) MergeAndReplace(record P, actorID uuid.UUID, other P) (P, error) {
	restoreRecord := snapshot[T, P](record)
	restoreOther := snapshot[T, P](other)

	var merged P
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		merged, err = s.mergeAndReplace(tx, record, actorID, other, time.Now().UTC())
		return err
	})
	if err != nil {
		restoreRecord()
		restoreOther()
		return nil, err
	}

	s.notifyChanged(merged, other)

	s.logger.Debug(
		"memberships merged",
		"variant", record.VariantName(),
		"parentId", record.ParentID(),
		"mergedId", merged.GetBase().ID,
		"otherId", other.GetBase().ID,
	)

	return merged, nil
}

func (s *RevisionService[T, P]) create(
	record P,
	actorID uuid.UUID,
	recordType memberships_enums.RecordType,
) (P, error) {
	restore := snapshot[T, P](record)

	*record.GetBase() = memberships_models.MembershipBase{
		ID:          uuid.New(),
		RecordType:  recordType,
		GrantedAt:   time.Now().UTC(),
		GrantedByID: &actorID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.recordRepository.GetActive(tx, record.SubjectID(), record.ParentID())
		if err != nil {
			return fmt.Errorf("failed to get active membership: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: active record %s", ErrMembershipExists, existing.GetBase().ID)
		}

		invite, err := s.recordRepository.GetCurrentInvite(tx, record.SubjectID(), record.ParentID())
		if err != nil {
			return fmt.Errorf("failed to get pending invite: %w", err)
		}
		if invite != nil {
			return fmt.Errorf("%w: pending invite %s", ErrMembershipExists, invite.GetBase().ID)
		}

		if err := s.insert(tx, record); err != nil {
			return err
		}

		action := "added"
		if recordType == memberships_enums.RecordTypeInvite {
			action = "invited"
		}

		return s.writeAuditLog(tx, record, actorID, action)
	})
	if err != nil {
		restore()
		return nil, err
	}

	if record.GetBase().IsActive() {
		s.notifyChanged(record)
	}

	return record, nil
}

func (s *RevisionService[T, P]) replace(
	tx *gorm.DB,
	record P,
	actorID uuid.UUID,
	accept bool,
	changes memberships_models.RoleChanges,
	at time.Time,
) (P, error) {
	base := record.GetBase()
	if base.IsRevoked() {
		return nil, revokedError(base.ID)
	}

	if err := s.validateChanges(record, changes); err != nil {
		return nil, err
	}

	fields := record.RoleFields()
	if !base.IsInvite() && fields.Matches(record, changes) {
		return record, nil
	}

	next := *record
	replacement := P(&next)
	*replacement.GetBase() = memberships_models.MembershipBase{
		ID:          uuid.New(),
		RecordType:  nextRecordType(base.RecordType, accept),
		GrantedAt:   at,
		GrantedByID: &actorID,
	}

	if reorderable, ok := any(replacement).(memberships_models.Reorderable); ok && reorderable.GetSeq() != nil {
		seq := *reorderable.GetSeq()
		reorderable.SetSeq(&seq)
	}

	for name, value := range changes {
		fields[name].Set(replacement, value)
	}

	// revoke first so the successor can take the active slot and seq
	if err := s.markRevoked(tx, record, actorID, at); err != nil {
		return nil, err
	}

	if err := s.insert(tx, replacement); err != nil {
		if errors.Is(err, ErrWriteConflict) {
			return nil, fmt.Errorf("%w: successor of %s: %w", ErrAlreadyRevoked, base.ID, err)
		}

		return nil, err
	}

	action := "amended"
	switch {
	case base.IsInvite() && accept:
		action = "accepted"
	case base.IsInvite():
		action = "re-invited"
	}

	if err := s.writeAuditLog(tx, replacement, actorID, action); err != nil {
		return nil, err
	}

	return replacement, nil
}

func (s *RevisionService[T, P]) mergeAndReplace(
	tx *gorm.DB,
	record P,
	actorID uuid.UUID,
	other P,
	at time.Time,
) (P, error) {
	if record.GetBase().ID == other.GetBase().ID {
		return nil, ErrMergeSameRecord
	}

	if record.GetBase().IsRevoked() {
		return nil, revokedError(record.GetBase().ID)
	}

	if other.GetBase().IsRevoked() {
		return nil, revokedError(other.GetBase().ID)
	}

	current := record
	if current.GetBase().IsInvite() && !other.GetBase().IsInvite() {
		accepted, err := s.replace(tx, current, actorID, true, nil, at)
		if err != nil {
			return nil, err
		}

		current = accepted
	}

	fields := current.RoleFields()
	changes := memberships_models.RoleChanges{}
	for _, name := range fields.Names() {
		field := fields[name]
		if !field.IsTruthy(current) && field.IsTruthy(other) {
			changes[name] = field.Get(other)
		}
	}

	merged, err := s.replace(tx, current, actorID, false, changes, at)
	if err != nil {
		return nil, err
	}

	if err := s.markRevoked(tx, other, actorID, at); err != nil {
		return nil, err
	}

	if err := s.writeAuditLog(tx, other, actorID, "merged into "+merged.GetBase().ID.String()); err != nil {
		return nil, err
	}

	return merged, nil
}

func (s *RevisionService[T, P]) markRevoked(tx *gorm.DB, record P, actorID uuid.UUID, at time.Time) error {
	base := record.GetBase()
	if base.IsRevoked() {
		return revokedError(base.ID)
	}

	revoked, err := s.recordRepository.MarkRevoked(tx, base.ID, at, actorID)
	if err != nil {
		return fmt.Errorf("failed to revoke membership %s: %w", base.ID, err)
	}

	if !revoked {
		return revokedError(base.ID)
	}

	base.RevokedAt = &at
	base.RevokedByID = &actorID

	return nil
}

func (s *RevisionService[T, P]) insert(tx *gorm.DB, record P) error {
	if record.GetBase().IsActive() {
		if err := assignNextSeq[T, P](tx, s.recordRepository, record); err != nil {
			return err
		}
	}

	if err := s.recordRepository.Insert(tx, record); err != nil {
		return fmt.Errorf("failed to insert membership: %w", mapDuplicate(err))
	}

	return nil
}

func (s *RevisionService[T, P]) validateChanges(record P, changes memberships_models.RoleChanges) error {
	fields := record.RoleFields()

	for name, value := range changes {
		field, ok := fields[name]
		if !ok {
			return &UnknownFieldError{Variant: record.VariantName(), Field: name}
		}

		probe := *record
		if !field.Set(&probe, value) {
			return &FieldValueError{Variant: record.VariantName(), Field: name, Value: value}
		}
	}

	return nil
}

func (s *RevisionService[T, P]) writeAuditLog(tx *gorm.DB, record P, actorID uuid.UUID, action string) error {
	if s.auditLogWriter == nil {
		return nil
	}

	parentID := record.ParentID()
	message := fmt.Sprintf(
		"%s of %s %s %s",
		describeVariant(record.VariantName()),
		strings.ToLower(string(record.SubjectKind())),
		record.SubjectID(),
		action,
	)

	return s.auditLogWriter.WriteAuditLog(tx, message, &actorID, &parentID)
}

func (s *RevisionService[T, P]) notifyChanged(records ...P) {
	for _, record := range records {
		if s.pending != nil {
			s.pending.add(s.changeListeners, record.VariantName(), record.ParentID())
			continue
		}

		for _, listener := range s.changeListeners {
			listener.OnMembershipsChanged(record.VariantName(), record.ParentID())
		}
	}
}

func nextRecordType(current memberships_enums.RecordType, accept bool) memberships_enums.RecordType {
	if current != memberships_enums.RecordTypeInvite {
		return memberships_enums.RecordTypeAmend
	}

	if accept {
		return memberships_enums.RecordTypeAccept
	}

	return memberships_enums.RecordTypeInvite
}

// snapshot returns a func that puts record back the way it is now.
func snapshot[T any, P memberships_models.Membership[T]](record P) func() {
	saved := *record
	return func() {
		*record = saved
	}
}

// describeVariant turns "project_membership" into "Project membership".
func describeVariant(variant string) string {
	if variant == "" {
		return variant
	}

	words := strings.ReplaceAll(variant, "_", " ")
	return strings.ToUpper(words[:1]) + words[1:]
}
