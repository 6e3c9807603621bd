package audit_logs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogService struct {
	db                 *gorm.DB
	auditLogRepository *AuditLogRepository
	logger             *slog.Logger
}

func NewAuditLogService(db *gorm.DB, logger *slog.Logger) *AuditLogService {
	return &AuditLogService{
		db:                 db,
		auditLogRepository: &AuditLogRepository{},
		logger:             logger,
	}
}

// WriteAuditLog records message on tx, so the entry commits or rolls back
// together with the change it describes.
func (s *AuditLogService) WriteAuditLog(
	tx *gorm.DB,
	message string,
	actorID *uuid.UUID,
	parentID *uuid.UUID,
) error {
	auditLog := &AuditLog{
		ActorID:   actorID,
		ParentID:  parentID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.auditLogRepository.Create(tx, auditLog); err != nil {
		s.logger.Error("failed to create audit log", "error", err)
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

func (s *AuditLogService) GetParentAuditLogs(
	parentID uuid.UUID,
	request *GetAuditLogsRequest,
) (*GetAuditLogsResponse, error) {
	limit, offset := normalizePage(request)

	auditLogs, err := s.auditLogRepository.GetByParent(s.db, parentID, limit, offset, request.BeforeDate)
	if err != nil {
		return nil, err
	}

	total, err := s.auditLogRepository.CountByParent(s.db, parentID, request.BeforeDate)
	if err != nil {
		return nil, err
	}

	return &GetAuditLogsResponse{
		AuditLogs: auditLogs,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func (s *AuditLogService) GetActorAuditLogs(
	actorID uuid.UUID,
	request *GetAuditLogsRequest,
) (*GetAuditLogsResponse, error) {
	limit, offset := normalizePage(request)

	auditLogs, err := s.auditLogRepository.GetByActor(s.db, actorID, limit, offset, request.BeforeDate)
	if err != nil {
		return nil, err
	}

	return &GetAuditLogsResponse{
		AuditLogs: auditLogs,
		Total:     int64(len(auditLogs)),
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func normalizePage(request *GetAuditLogsRequest) (int, int) {
	limit := request.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	return limit, max(request.Offset, 0)
}
