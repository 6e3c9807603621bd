package memberships_services

import (
	"testing"
	"time"

	cache_testing "memberledger/internal/cache/testing"
	"memberledger/internal/features/audit_logs"
	storage_testing "memberledger/internal/storage/testing"
	"memberledger/internal/util/logger"

	"gorm.io/gorm"
)

func createTestServices(t *testing.T) (*MembershipServices, *gorm.DB) {
	t.Helper()

	db := storage_testing.CreateTestDb(t)
	auditLogService := audit_logs.NewAuditLogService(db, logger.GetLogger())

	return NewMembershipServices(db, auditLogService, nil, 0, logger.GetLogger()), db
}

// createCachedTestServices builds services over handles of one database that
// share one cache, each standing in for a separate process.
func createCachedTestServices(t *testing.T, processes int) ([]*MembershipServices, []*gorm.DB) {
	t.Helper()

	cacheClient, _ := cache_testing.CreateTestClient(t)
	handles := storage_testing.CreateTestDbHandles(t, processes)

	services := make([]*MembershipServices, len(handles))
	for i, db := range handles {
		auditLogService := audit_logs.NewAuditLogService(db, logger.GetLogger())
		services[i] = NewMembershipServices(db, auditLogService, cacheClient, time.Minute, logger.GetLogger())
	}

	return services, handles
}

func countAuditLogs(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&audit_logs.AuditLog{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count audit logs: %v", err)
	}

	return count
}
