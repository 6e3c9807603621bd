package memberships_services

import (
	"sync"

	"memberledger/internal/cache"
	"memberledger/internal/config"
	"memberledger/internal/features/audit_logs"
	"memberledger/internal/storage"
	"memberledger/internal/util/logger"
)

var (
	membershipServices     *MembershipServices
	membershipServicesOnce sync.Once
)

func GetMembershipServices() *MembershipServices {
	membershipServicesOnce.Do(func() {
		membershipServices = NewMembershipServices(
			storage.GetDb(),
			audit_logs.GetAuditLogService(),
			cache.GetCache(),
			config.GetEnv().ActiveMembersCacheExpiry,
			logger.GetLogger(),
		)
	})

	return membershipServices
}
