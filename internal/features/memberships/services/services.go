package memberships_services

import (
	"fmt"
	"log/slog"
	"time"

	memberships_interfaces "memberledger/internal/features/memberships/interfaces"
	memberships_models "memberledger/internal/features/memberships/models"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

type VariantServices[T any, P memberships_models.Membership[T]] struct {
	Revisions *RevisionService[T, P]
	Queries   *QueryService[T, P]
}

type ReorderableVariantServices[T any, P memberships_models.ReorderableMembership[T]] struct {
	VariantServices[T, P]
	Sequence *SequenceService[T, P]
}

type MembershipServices struct {
	Projects      *ReorderableVariantServices[memberships_models.ProjectMembership, *memberships_models.ProjectMembership]
	Proposals     *ReorderableVariantServices[memberships_models.ProposalMembership, *memberships_models.ProposalMembership]
	Sponsors      *ReorderableVariantServices[memberships_models.SponsorMembership, *memberships_models.SponsorMembership]
	Organizations *VariantServices[memberships_models.OrganizationMembership, *memberships_models.OrganizationMembership]

	Merge *MergeService
}

// NewMembershipServices wires every variant. cacheClient and auditLogWriter
// may be nil; cacheExpiry bounds how long a member list stays cached.
func NewMembershipServices(
	db *gorm.DB,
	auditLogWriter memberships_interfaces.AuditLogWriter,
	cacheClient valkey.Client,
	cacheExpiry time.Duration,
	logger *slog.Logger,
) *MembershipServices {
	projects := newReorderableVariantServices[memberships_models.ProjectMembership](
		db, auditLogWriter, cacheClient, "ml_project_members:", cacheExpiry, logger,
	)
	proposals := newReorderableVariantServices[memberships_models.ProposalMembership](
		db, auditLogWriter, cacheClient, "ml_proposal_members:", cacheExpiry, logger,
	)
	sponsors := newReorderableVariantServices[memberships_models.SponsorMembership](
		db, auditLogWriter, cacheClient, "ml_sponsor_members:", cacheExpiry, logger,
	)
	organizations := newVariantServices[memberships_models.OrganizationMembership](
		db, auditLogWriter, cacheClient, "ml_organization_members:", cacheExpiry, logger,
	)

	migrators := []SubjectMigrator{
		projects.migrator(db),
		proposals.migrator(db),
		sponsors.migrator(db),
		organizations.migrator(db),
	}

	return &MembershipServices{
		Projects:      projects,
		Proposals:     proposals,
		Sponsors:      sponsors,
		Organizations: organizations,
		Merge:         NewMergeService(db, migrators, auditLogWriter, logger),
	}
}

// MergeRecords merges two records whose variant is only known at runtime.
// Records of different variants fail with ErrMergeTypeMismatch.
func (s *MembershipServices) MergeRecords(
	actorID uuid.UUID,
	record, other memberships_models.Revisable,
) (memberships_models.Revisable, error) {
	if record.VariantName() != other.VariantName() {
		return nil, fmt.Errorf(
			"%w: %s and %s",
			ErrMergeTypeMismatch,
			record.VariantName(),
			other.VariantName(),
		)
	}

	switch typed := record.(type) {
	case *memberships_models.ProjectMembership:
		return mergeTyped(s.Projects.Revisions, actorID, typed, other)
	case *memberships_models.ProposalMembership:
		return mergeTyped(s.Proposals.Revisions, actorID, typed, other)
	case *memberships_models.SponsorMembership:
		return mergeTyped(s.Sponsors.Revisions, actorID, typed, other)
	case *memberships_models.OrganizationMembership:
		return mergeTyped(s.Organizations.Revisions, actorID, typed, other)
	default:
		return nil, fmt.Errorf("%w: unsupported record %T", ErrMergeTypeMismatch, record)
	}
}

func mergeTyped[T any, P memberships_models.Membership[T]](
	service *RevisionService[T, P],
	actorID uuid.UUID,
	record P,
	other memberships_models.Revisable,
) (memberships_models.Revisable, error) {
	typedOther, ok := other.(P)
	if !ok {
		return nil, fmt.Errorf("%w: %T and %T", ErrMergeTypeMismatch, record, other)
	}

	merged, err := service.MergeAndReplace(record, actorID, typedOther)
	if err != nil {
		return nil, err
	}

	return merged, nil
}

func newVariantServices[T any, P memberships_models.Membership[T]](
	db *gorm.DB,
	auditLogWriter memberships_interfaces.AuditLogWriter,
	cacheClient valkey.Client,
	cachePrefix string,
	cacheExpiry time.Duration,
	logger *slog.Logger,
) *VariantServices[T, P] {
	revisions := NewRevisionService[T, P](db, auditLogWriter, logger)
	queries := NewQueryService[T, P](db, cacheClient, cachePrefix, cacheExpiry, logger)

	revisions.AddMembershipChangeListener(queries)

	return &VariantServices[T, P]{
		Revisions: revisions,
		Queries:   queries,
	}
}

func newReorderableVariantServices[T any, P memberships_models.ReorderableMembership[T]](
	db *gorm.DB,
	auditLogWriter memberships_interfaces.AuditLogWriter,
	cacheClient valkey.Client,
	cachePrefix string,
	cacheExpiry time.Duration,
	logger *slog.Logger,
) *ReorderableVariantServices[T, P] {
	variant := newVariantServices[T, P](db, auditLogWriter, cacheClient, cachePrefix, cacheExpiry, logger)

	sequence := NewSequenceService[T, P](db, logger)
	sequence.AddMembershipChangeListener(variant.Queries)

	return &ReorderableVariantServices[T, P]{
		VariantServices: *variant,
		Sequence:        sequence,
	}
}

func (v *VariantServices[T, P]) migrator(db *gorm.DB) SubjectMigrator {
	return NewVariantMigrator(db, v.Revisions, v.Queries)
}
