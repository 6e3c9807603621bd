package memberships_services

import (
	"fmt"
	"log/slog"

	memberships_enums "memberledger/internal/features/memberships/enums"
	memberships_interfaces "memberledger/internal/features/memberships/interfaces"
	memberships_models "memberledger/internal/features/memberships/models"
	memberships_repositories "memberledger/internal/features/memberships/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubjectMigrator moves one variant's records from one subject to another.
type SubjectMigrator interface {
	VariantName() string
	SubjectKind() memberships_enums.SubjectKind

	// MergeConflicts merges, parent by parent, every active record of the old
	// subject into the new subject's active record in the same parent. Each
	// parent commits on its own.
	MergeConflicts(oldSubjectID, newSubjectID, actorID uuid.UUID) (int, error)

	// ReassignSubject points every record of the old subject at the new one
	// and returns the parents whose active members changed.
	ReassignSubject(tx *gorm.DB, oldSubjectID, newSubjectID uuid.UUID) ([]uuid.UUID, int64, error)

	ReassignActor(tx *gorm.DB, oldActorID, newActorID uuid.UUID) error

	InvalidateParents(parentIDs []uuid.UUID)
}

type VariantMigrator[T any, P memberships_models.Membership[T]] struct {
	db               *gorm.DB
	revisionService  *RevisionService[T, P]
	queryService     *QueryService[T, P]
	recordRepository *memberships_repositories.RecordRepository[T, P]
}

func NewVariantMigrator[T any, P memberships_models.Membership[T]](
	db *gorm.DB,
	revisionService *RevisionService[T, P],
	queryService *QueryService[T, P],
) *VariantMigrator[T, P] {
	return &VariantMigrator[T, P]{
		db:               db,
		revisionService:  revisionService,
		queryService:     queryService,
		recordRepository: &memberships_repositories.RecordRepository[T, P]{},
	}
}

func (m *VariantMigrator[T, P]) VariantName() string {
	return P(new(T)).VariantName()
}

func (m *VariantMigrator[T, P]) SubjectKind() memberships_enums.SubjectKind {
	return P(new(T)).SubjectKind()
}

func (m *VariantMigrator[T, P]) MergeConflicts(oldSubjectID, newSubjectID, actorID uuid.UUID) (int, error) {
	sourceRecords, err := m.recordRepository.GetActiveForSubject(m.db, oldSubjectID)
	if err != nil {
		return 0, fmt.Errorf("failed to get active %s records: %w", m.VariantName(), err)
	}

	if len(sourceRecords) == 0 {
		return 0, nil
	}

	parentIDs := make([]uuid.UUID, len(sourceRecords))
	for i, record := range sourceRecords {
		parentIDs[i] = record.ParentID()
	}

	targetRecords, err := m.recordRepository.GetActiveForSubjectInParents(m.db, newSubjectID, parentIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to get active %s records: %w", m.VariantName(), err)
	}

	targetsByParent := make(map[uuid.UUID]P, len(targetRecords))
	for _, record := range targetRecords {
		targetsByParent[record.ParentID()] = record
	}

	merged := 0
	for _, source := range sourceRecords {
		target, ok := targetsByParent[source.ParentID()]
		if !ok {
			continue
		}

		if _, err := m.revisionService.MergeAndReplace(target, actorID, source); err != nil {
			return merged, &ParentMergeError{
				Variant:  m.VariantName(),
				ParentID: source.ParentID(),
				Err:      err,
			}
		}

		merged++
	}

	return merged, nil
}

func (m *VariantMigrator[T, P]) ReassignSubject(
	tx *gorm.DB,
	oldSubjectID, newSubjectID uuid.UUID,
) ([]uuid.UUID, int64, error) {
	active, err := m.recordRepository.GetActiveForSubject(tx, oldSubjectID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get active %s records: %w", m.VariantName(), err)
	}

	parentIDs := make([]uuid.UUID, len(active))
	for i, record := range active {
		parentIDs[i] = record.ParentID()
	}

	count, err := m.recordRepository.ReassignSubject(tx, oldSubjectID, newSubjectID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reassign %s records: %w", m.VariantName(), mapDuplicate(err))
	}

	return parentIDs, count, nil
}

func (m *VariantMigrator[T, P]) ReassignActor(tx *gorm.DB, oldActorID, newActorID uuid.UUID) error {
	if err := m.recordRepository.ReassignActor(tx, oldActorID, newActorID); err != nil {
		return fmt.Errorf("failed to reassign %s actors: %w", m.VariantName(), err)
	}

	return nil
}

func (m *VariantMigrator[T, P]) InvalidateParents(parentIDs []uuid.UUID) {
	m.queryService.InvalidateParents(parentIDs)
}

type MigrationResult struct {
	MergedParents     int
	ReassignedRecords int64
}

// MergeService moves every membership of a duplicate subject onto the subject
// it is being merged into.
type MergeService struct {
	db             *gorm.DB
	migrators      []SubjectMigrator
	auditLogWriter memberships_interfaces.AuditLogWriter
	logger         *slog.Logger
}

func NewMergeService(
	db *gorm.DB,
	migrators []SubjectMigrator,
	auditLogWriter memberships_interfaces.AuditLogWriter,
	logger *slog.Logger,
) *MergeService {
	return &MergeService{
		db:             db,
		migrators:      migrators,
		auditLogWriter: auditLogWriter,
		logger:         logger,
	}
}

// MigrateUser moves every user-keyed membership of oldUserID to newUserID and
// rewrites grant and revoke attributions. A returned error that satisfies
// IsRetryable means a concurrent write won a race and the call can be
// repeated; parents merged before the failure stay merged.
func (s *MergeService) MigrateUser(oldUserID, newUserID, actorID uuid.UUID) (*MigrationResult, error) {
	return s.migrate(memberships_enums.SubjectKindUser, oldUserID, newUserID, actorID)
}

// MigrateProfile moves every profile-keyed membership of oldProfileID to
// newProfileID.
func (s *MergeService) MigrateProfile(oldProfileID, newProfileID, actorID uuid.UUID) (*MigrationResult, error) {
	return s.migrate(memberships_enums.SubjectKindProfile, oldProfileID, newProfileID, actorID)
}

func (s *MergeService) migrate(
	kind memberships_enums.SubjectKind,
	oldSubjectID, newSubjectID, actorID uuid.UUID,
) (*MigrationResult, error) {
	if oldSubjectID == newSubjectID {
		return nil, ErrSameSubject
	}

	result := &MigrationResult{}

	for _, migrator := range s.migrators {
		if migrator.SubjectKind() != kind {
			continue
		}

		merged, err := migrator.MergeConflicts(oldSubjectID, newSubjectID, actorID)
		result.MergedParents += merged
		if err != nil {
			s.logger.Warn(
				"failed to merge conflicting memberships",
				"variant", migrator.VariantName(),
				"oldSubjectId", oldSubjectID,
				"newSubjectId", newSubjectID,
				"error", err,
			)
			return result, err
		}
	}

	changedParents := make(map[SubjectMigrator][]uuid.UUID)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, migrator := range s.migrators {
			if migrator.SubjectKind() == kind {
				parentIDs, count, err := migrator.ReassignSubject(tx, oldSubjectID, newSubjectID)
				if err != nil {
					return err
				}

				changedParents[migrator] = parentIDs
				result.ReassignedRecords += count
			}

			if kind == memberships_enums.SubjectKindUser {
				if err := migrator.ReassignActor(tx, oldSubjectID, newSubjectID); err != nil {
					return err
				}
			}
		}

		if s.auditLogWriter == nil {
			return nil
		}

		message := fmt.Sprintf(
			"Memberships of %s %s migrated to %s (%d parents merged, %d records moved)",
			kindLabel(kind),
			oldSubjectID,
			newSubjectID,
			result.MergedParents,
			result.ReassignedRecords,
		)

		return s.auditLogWriter.WriteAuditLog(tx, message, &actorID, nil)
	})
	if err != nil {
		return result, err
	}

	for migrator, parentIDs := range changedParents {
		migrator.InvalidateParents(parentIDs)
	}

	s.logger.Info(
		"subject memberships migrated",
		"kind", kind,
		"oldSubjectId", oldSubjectID,
		"newSubjectId", newSubjectID,
		"mergedParents", result.MergedParents,
		"reassignedRecords", result.ReassignedRecords,
	)

	return result, nil
}

func kindLabel(kind memberships_enums.SubjectKind) string {
	if kind == memberships_enums.SubjectKindProfile {
		return "profile"
	}

	return "user"
}
