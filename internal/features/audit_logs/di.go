package audit_logs

import (
	"sync"

	"memberledger/internal/storage"
	"memberledger/internal/util/logger"
)

var (
	auditLogService     *AuditLogService
	auditLogServiceOnce sync.Once
)

func GetAuditLogService() *AuditLogService {
	auditLogServiceOnce.Do(func() {
		auditLogService = NewAuditLogService(storage.GetDb(), logger.GetLogger())
	})

	return auditLogService
}
