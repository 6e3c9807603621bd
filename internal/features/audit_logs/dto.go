package audit_logs

import (
	"time"
)

type GetAuditLogsRequest struct {
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
	BeforeDate *time.Time `json:"beforeDate"`
}

type GetAuditLogsResponse struct {
	AuditLogs []*AuditLog `json:"auditLogs"`
	Total     int64       `json:"total"`
	Limit     int         `json:"limit"`
	Offset    int         `json:"offset"`
}
