package memberships_services

import (
	"fmt"
	"log/slog"
	"time"

	memberships_models "memberledger/internal/features/memberships/models"
	memberships_repositories "memberledger/internal/features/memberships/repositories"
	cache_utils "memberledger/internal/util/cache"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type QueryService[T any, P memberships_models.Membership[T]] struct {
	db                    *gorm.DB
	recordRepository      *memberships_repositories.RecordRepository[T, P]
	activeMembersCache    *cache_utils.CacheUtil[activeMembersEntry[T]]
	activeMembersVersions *cache_utils.VersionCounter
	singleflight          singleflight.Group // Prevents thundering herd on DB calls
	logger                *slog.Logger
}

// activeMembersEntry is a cached member list tagged with the parent's version
// at the time the list was loaded.
type activeMembersEntry[T any] struct {
	Version int64 `json:"version"`
	Members []T   `json:"members"`
}

// NewQueryService builds a query service. A nil cacheClient disables caching
// of active member lists; a non-positive cacheExpiry keeps the default.
func NewQueryService[T any, P memberships_models.Membership[T]](
	db *gorm.DB,
	cacheClient valkey.Client,
	cachePrefix string,
	cacheExpiry time.Duration,
	logger *slog.Logger,
) *QueryService[T, P] {
	return &QueryService[T, P]{
		db:                    db,
		recordRepository:      &memberships_repositories.RecordRepository[T, P]{},
		activeMembersCache:    cache_utils.NewCacheUtil[activeMembersEntry[T]](cacheClient, cachePrefix).WithExpiry(cacheExpiry),
		activeMembersVersions: cache_utils.NewVersionCounter(cacheClient, cachePrefix+"version:"),
		logger:                logger,
	}
}

// GetActiveMembership returns the subject's active record in parent, or nil.
func (s *QueryService[T, P]) GetActiveMembership(subjectID, parentID uuid.UUID) (P, error) {
	return s.recordRepository.GetActive(s.db, subjectID, parentID)
}

func (s *QueryService[T, P]) GetPendingInvite(subjectID, parentID uuid.UUID) (P, error) {
	return s.recordRepository.GetCurrentInvite(s.db, subjectID, parentID)
}

func (s *QueryService[T, P]) GetByID(id uuid.UUID) (P, error) {
	return s.recordRepository.GetByID(s.db, id)
}

// GetActiveMembers returns the parent's active members in display order. Each
// caller gets its own copies of the records.
func (s *QueryService[T, P]) GetActiveMembers(parentID uuid.UUID) ([]P, error) {
	key := parentID.String()

	// read before loading: an invalidation racing with the load bumps the
	// version, so whatever the load stores is never served
	version, versioned := s.activeMembersVersions.Current(key)
	if versioned {
		if cached := s.activeMembersCache.Get(key); cached != nil && cached.Version == version {
			return copyRecords[T, P](cached.Members), nil
		}
	}

	flightKey := fmt.Sprintf("%s:%d", key, version)
	result, err, _ := s.singleflight.Do(flightKey, func() (any, error) {
		records, err := s.recordRepository.GetActiveForParent(s.db, parentID)
		if err != nil {
			return nil, err
		}

		values := make([]T, len(records))
		for i, record := range records {
			values[i] = *record
		}

		if versioned {
			s.activeMembersCache.Set(key, &activeMembersEntry[T]{Version: version, Members: values})
		}

		return values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get active members: %w", err)
	}

	values, ok := result.([]T)
	if !ok {
		return nil, fmt.Errorf("failed to cast active members of %s", parentID)
	}

	return copyRecords[T, P](values), nil
}

// GetChain returns every record of subject in parent, oldest first.
func (s *QueryService[T, P]) GetChain(subjectID, parentID uuid.UUID) ([]P, error) {
	return s.recordRepository.GetChain(s.db, subjectID, parentID)
}

// GetSubjectHistory returns every record of subject across parents.
func (s *QueryService[T, P]) GetSubjectHistory(subjectID uuid.UUID) ([]P, error) {
	return s.recordRepository.GetForSubject(s.db, subjectID)
}

func (s *QueryService[T, P]) GetActiveForSubject(subjectID uuid.UUID) ([]P, error) {
	return s.recordRepository.GetActiveForSubject(s.db, subjectID)
}

func (s *QueryService[T, P]) OnMembershipsChanged(variant string, parentID uuid.UUID) {
	if variant != P(new(T)).VariantName() {
		return
	}

	s.invalidate(parentID)
}

// InvalidateParents drops cached member lists for the given parents.
func (s *QueryService[T, P]) InvalidateParents(parentIDs []uuid.UUID) {
	for _, parentID := range parentIDs {
		s.invalidate(parentID)
	}
}

func (s *QueryService[T, P]) invalidate(parentID uuid.UUID) {
	key := parentID.String()

	if err := s.activeMembersVersions.Bump(key); err != nil {
		s.logger.Warn("failed to bump active members version", "parentId", parentID, "error", err)
	}

	s.activeMembersCache.Invalidate(key)
}

func copyRecords[T any, P memberships_models.Membership[T]](values []T) []P {
	records := make([]P, len(values))
	for i := range values {
		record := values[i]
		records[i] = P(&record)
	}

	return records
}
