package audit_logs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogRepository struct{}

func (r *AuditLogRepository) Create(tx *gorm.DB, auditLog *AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	return tx.Create(auditLog).Error
}

func (r *AuditLogRepository) GetByParent(
	db *gorm.DB,
	parentID uuid.UUID,
	limit, offset int,
	beforeDate *time.Time,
) ([]*AuditLog, error) {
	return r.find(db.Where("parent_id = ?", parentID), limit, offset, beforeDate)
}

func (r *AuditLogRepository) GetByActor(
	db *gorm.DB,
	actorID uuid.UUID,
	limit, offset int,
	beforeDate *time.Time,
) ([]*AuditLog, error) {
	return r.find(db.Where("actor_id = ?", actorID), limit, offset, beforeDate)
}

func (r *AuditLogRepository) CountByParent(db *gorm.DB, parentID uuid.UUID, beforeDate *time.Time) (int64, error) {
	var count int64
	query := db.Model(&AuditLog{}).Where("parent_id = ?", parentID)

	if beforeDate != nil {
		query = query.Where("created_at < ?", *beforeDate)
	}

	err := query.Count(&count).Error
	return count, err
}

func (r *AuditLogRepository) find(
	query *gorm.DB,
	limit, offset int,
	beforeDate *time.Time,
) ([]*AuditLog, error) {
	var auditLogs = make([]*AuditLog, 0)

	if beforeDate != nil {
		query = query.Where("created_at < ?", *beforeDate)
	}

	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&auditLogs).Error

	return auditLogs, err
}
