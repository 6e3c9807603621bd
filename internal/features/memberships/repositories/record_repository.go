package memberships_repositories

import (
	"errors"
	"fmt"
	"time"

	memberships_enums "memberledger/internal/features/memberships/enums"
	memberships_models "memberledger/internal/features/memberships/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const activeCondition = "revoked_at IS NULL AND record_type <> ?"

// chainOrder sorts a chain oldest first. Records written by one operation
// share granted_at, so the already revoked one sorts first.
const chainOrder = "granted_at ASC, revoked_at IS NULL ASC, id ASC"

// RecordRepository reads and writes one membership table. Every method takes
// the handle to run on so callers can compose them inside a transaction.
type RecordRepository[T any, P memberships_models.Membership[T]] struct{}

func (r *RecordRepository[T, P]) descriptor() P {
	return P(new(T))
}

func (r *RecordRepository[T, P]) IsReorderable() bool {
	_, ok := any(r.descriptor()).(memberships_models.Reorderable)
	return ok
}

func (r *RecordRepository[T, P]) GetByID(tx *gorm.DB, id uuid.UUID) (P, error) {
	var record T

	if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return P(&record), nil
}

func (r *RecordRepository[T, P]) GetActive(tx *gorm.DB, subjectID, parentID uuid.UUID) (P, error) {
	d := r.descriptor()

	var record T
	err := tx.
		Where(d.SubjectColumn()+" = ? AND "+d.ParentColumn()+" = ?", subjectID, parentID).
		Where(activeCondition, memberships_enums.RecordTypeInvite).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return P(&record), nil
}

func (r *RecordRepository[T, P]) GetCurrentInvite(tx *gorm.DB, subjectID, parentID uuid.UUID) (P, error) {
	d := r.descriptor()

	var record T
	err := tx.
		Where(d.SubjectColumn()+" = ? AND "+d.ParentColumn()+" = ?", subjectID, parentID).
		Where("revoked_at IS NULL AND record_type = ?", memberships_enums.RecordTypeInvite).
		Order("granted_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return P(&record), nil
}

// GetActiveForParent returns the active members of a parent, in seq order for
// reorderable variants and by grant time otherwise.
func (r *RecordRepository[T, P]) GetActiveForParent(tx *gorm.DB, parentID uuid.UUID) ([]P, error) {
	d := r.descriptor()

	order := "granted_at ASC, id ASC"
	if r.IsReorderable() {
		order = "seq IS NULL ASC, seq ASC, granted_at ASC, id ASC"
	}

	var records []T
	err := tx.
		Where(d.ParentColumn()+" = ?", parentID).
		Where(activeCondition, memberships_enums.RecordTypeInvite).
		Order(order).
		Find(&records).Error

	return toPointers[T, P](records), err
}

func (r *RecordRepository[T, P]) GetChain(tx *gorm.DB, subjectID, parentID uuid.UUID) ([]P, error) {
	d := r.descriptor()

	var records []T
	err := tx.
		Where(d.SubjectColumn()+" = ? AND "+d.ParentColumn()+" = ?", subjectID, parentID).
		Order(chainOrder).
		Find(&records).Error

	return toPointers[T, P](records), err
}

func (r *RecordRepository[T, P]) GetForSubject(tx *gorm.DB, subjectID uuid.UUID) ([]P, error) {
	d := r.descriptor()

	var records []T
	err := tx.
		Where(d.SubjectColumn()+" = ?", subjectID).
		Order(d.ParentColumn() + " ASC, " + chainOrder).
		Find(&records).Error

	return toPointers[T, P](records), err
}

func (r *RecordRepository[T, P]) GetActiveForSubject(tx *gorm.DB, subjectID uuid.UUID) ([]P, error) {
	d := r.descriptor()

	var records []T
	err := tx.
		Where(d.SubjectColumn()+" = ?", subjectID).
		Where(activeCondition, memberships_enums.RecordTypeInvite).
		Order("granted_at ASC, id ASC").
		Find(&records).Error

	return toPointers[T, P](records), err
}

func (r *RecordRepository[T, P]) GetActiveForSubjectInParents(
	tx *gorm.DB,
	subjectID uuid.UUID,
	parentIDs []uuid.UUID,
) ([]P, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	d := r.descriptor()

	var records []T
	err := tx.
		Where(d.SubjectColumn()+" = ? AND "+d.ParentColumn()+" IN ?", subjectID, parentIDs).
		Where(activeCondition, memberships_enums.RecordTypeInvite).
		Find(&records).Error

	return toPointers[T, P](records), err
}

func (r *RecordRepository[T, P]) Insert(tx *gorm.DB, record P) error {
	return tx.Create(record).Error
}

// MarkRevoked fills the revocation columns if they are still empty and
// reports whether this call was the one that revoked the row.
func (r *RecordRepository[T, P]) MarkRevoked(
	tx *gorm.DB,
	id uuid.UUID,
	revokedAt time.Time,
	revokedByID uuid.UUID,
) (bool, error) {
	result := tx.
		Model(new(T)).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{
			"revoked_at":    revokedAt,
			"revoked_by_id": revokedByID,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *RecordRepository[T, P]) UpdateSeq(tx *gorm.DB, id uuid.UUID, seq int) error {
	result := tx.Model(new(T)).Where("id = ?", id).Update("seq", seq)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected != 1 {
		return fmt.Errorf("membership %s not found while updating seq", id)
	}

	return nil
}

// NextSeq returns one more than the highest seq among the parent's active
// members, or 1 when there are none.
func (r *RecordRepository[T, P]) NextSeq(tx *gorm.DB, parentID uuid.UUID) (int, error) {
	d := r.descriptor()

	var maxSeq int
	err := tx.
		Model(new(T)).
		Select("COALESCE(MAX(seq), 0)").
		Where(d.ParentColumn()+" = ?", parentID).
		Where(activeCondition, memberships_enums.RecordTypeInvite).
		Row().
		Scan(&maxSeq)
	if err != nil {
		return 0, err
	}

	return maxSeq + 1, nil
}

// GetSeqWindow returns the parent's active members with seq in [low, high].
func (r *RecordRepository[T, P]) GetSeqWindow(
	tx *gorm.DB,
	parentID uuid.UUID,
	low, high int,
	descending bool,
) ([]P, error) {
	d := r.descriptor()

	order := "seq ASC, id ASC"
	if descending {
		order = "seq DESC, id DESC"
	}

	var records []T
	err := tx.
		Where(d.ParentColumn()+" = ?", parentID).
		Where(activeCondition, memberships_enums.RecordTypeInvite).
		Where("seq >= ? AND seq <= ?", low, high).
		Order(order).
		Find(&records).Error

	return toPointers[T, P](records), err
}

// ReassignSubject points every record of one subject at another.
func (r *RecordRepository[T, P]) ReassignSubject(tx *gorm.DB, fromID, toID uuid.UUID) (int64, error) {
	column := r.descriptor().SubjectColumn()

	result := tx.Model(new(T)).Where(column+" = ?", fromID).Update(column, toID)
	return result.RowsAffected, result.Error
}

// ReassignActor rewrites granted_by and revoked_by references.
func (r *RecordRepository[T, P]) ReassignActor(tx *gorm.DB, fromID, toID uuid.UUID) error {
	for _, column := range []string{"granted_by_id", "revoked_by_id"} {
		if err := tx.Model(new(T)).Where(column+" = ?", fromID).Update(column, toID).Error; err != nil {
			return err
		}
	}

	return nil
}

func toPointers[T any, P memberships_models.Membership[T]](records []T) []P {
	result := make([]P, len(records))
	for i := range records {
		result[i] = P(&records[i])
	}

	return result
}
