package memberships_services

import (
	"errors"
	"testing"

	memberships_enums "memberledger/internal/features/memberships/enums"
	memberships_models "memberledger/internal/features/memberships/models"
	memberships_testing "memberledger/internal/features/memberships/testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_DirectAdd_CreatesActiveRecordWithSeq(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, projectID := uuid.New(), uuid.New()

	first, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), projectID), actorID)
	require.NoError(t, err)
	second, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), projectID), actorID)
	require.NoError(t, err)

	assert.Equal(t, memberships_enums.RecordTypeDirectAdd, first.RecordType)
	assert.Nil(t, first.RevokedAt)
	assert.Equal(t, &actorID, first.GrantedByID)
	assert.False(t, first.GrantedAt.IsZero())

	require.NotNil(t, first.Seq)
	require.NotNil(t, second.Seq)
	assert.Equal(t, 1, *first.Seq)
	assert.Equal(t, 2, *second.Seq)

	active, err := projects.Queries.GetActiveMembership(first.UserID, projectID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)

	assert.Equal(t, int64(2), countAuditLogs(t, db))
	memberships_testing.AssertAtMostOneActive(t, db)
}

func Test_DirectAdd_WhenActiveMembershipExists_ReturnsErrMembershipExists(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, userID, projectID := uuid.New(), uuid.New(), uuid.New()

	_, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(userID, projectID), actorID)
	require.NoError(t, err)

	duplicate := memberships_testing.NewProjectMembership(userID, projectID)
	_, err = projects.Revisions.DirectAdd(duplicate, actorID)
	assert.ErrorIs(t, err, ErrMembershipExists)
	assert.Equal(t, uuid.Nil, duplicate.ID, "failed create must leave the record untouched")

	_, err = projects.Revisions.Invite(memberships_testing.NewProjectMembership(userID, projectID), actorID)
	assert.ErrorIs(t, err, ErrMembershipExists)

	assert.Equal(t, int64(1), memberships_testing.CountRows(t, db, duplicate))
}

func Test_Invite_WhenAccepted_CreatesAcceptRecordWithSeq(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, userID, projectID := uuid.New(), uuid.New(), uuid.New()

	invite := memberships_testing.NewProjectMembership(userID, projectID)
	invite.IsEditor = true
	invite, err := projects.Revisions.Invite(invite, actorID)
	require.NoError(t, err)

	assert.Equal(t, memberships_enums.RecordTypeInvite, invite.RecordType)
	assert.Nil(t, invite.Seq)

	active, err := projects.Queries.GetActiveMembership(userID, projectID)
	require.NoError(t, err)
	assert.Nil(t, active, "an invite does not grant membership")

	pending, err := projects.Queries.GetPendingInvite(userID, projectID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, invite.ID, pending.ID)

	accepted, err := projects.Revisions.Accept(invite, userID)
	require.NoError(t, err)

	assert.Equal(t, memberships_enums.RecordTypeAccept, accepted.RecordType)
	assert.True(t, accepted.IsEditor)
	require.NotNil(t, accepted.Seq)
	assert.Equal(t, 1, *accepted.Seq)
	assert.Equal(t, &userID, accepted.GrantedByID)

	assert.True(t, invite.IsRevoked())
	assert.Equal(t, &userID, invite.RevokedByID)

	chain, err := projects.Queries.GetChain(userID, projectID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, invite.ID, chain[0].ID)
	assert.Equal(t, accepted.ID, chain[1].ID)

	memberships_testing.AssertAtMostOneActive(t, db)
}

func Test_Accept_WhenActorIsNotSubject_ReturnsErrNotInviteSubject(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, userID, projectID := uuid.New(), uuid.New(), uuid.New()

	invite, err := projects.Revisions.Invite(memberships_testing.NewProjectMembership(userID, projectID), actorID)
	require.NoError(t, err)

	_, err = projects.Revisions.Accept(invite, actorID)
	assert.ErrorIs(t, err, ErrNotInviteSubject)
	assert.False(t, invite.IsRevoked())
	assert.Equal(t, int64(1), memberships_testing.CountRows(t, db, invite))
}

func Test_Accept_WhenRecordIsNotInvite_ReturnsErrNotAnInvite(t *testing.T) {
	services, _ := createTestServices(t)
	projects := services.Projects

	userID, projectID := uuid.New(), uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(userID, projectID), uuid.New())
	require.NoError(t, err)

	_, err = projects.Revisions.Accept(record, userID)
	assert.ErrorIs(t, err, ErrNotAnInvite)
}

func Test_Replace_WhenInviteNotAccepted_ReissuesInvite(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, userID, projectID := uuid.New(), uuid.New(), uuid.New()

	invite, err := projects.Revisions.Invite(memberships_testing.NewProjectMembership(userID, projectID), actorID)
	require.NoError(t, err)

	reissued, err := projects.Revisions.Replace(invite, actorID, false, nil)
	require.NoError(t, err)

	assert.NotEqual(t, invite.ID, reissued.ID)
	assert.Equal(t, memberships_enums.RecordTypeInvite, reissued.RecordType)
	assert.Nil(t, reissued.Seq)
	assert.True(t, invite.IsRevoked())
	assert.Equal(t, int64(2), memberships_testing.CountRows(t, db, invite))
}

func Test_Replace_WhenValuesUnchanged_ReturnsSameRecordWithoutWriting(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record := memberships_testing.NewProjectMembership(uuid.New(), uuid.New())
	record.IsEditor = true
	record.Label = "Host"
	record, err := projects.Revisions.DirectAdd(record, actorID)
	require.NoError(t, err)

	auditLogsBefore := countAuditLogs(t, db)

	result, err := projects.Revisions.Replace(record, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldIsEditor: true,
		memberships_models.FieldLabel:    "Host",
	})
	require.NoError(t, err)

	assert.Same(t, record, result)
	assert.False(t, record.IsRevoked())
	assert.Equal(t, int64(1), memberships_testing.CountRows(t, db, record))
	assert.Equal(t, auditLogsBefore, countAuditLogs(t, db))
}

func Test_Replace_WithChange_RevokesOriginalAndKeepsSeq(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, projectID := uuid.New(), uuid.New()

	_, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), projectID), actorID)
	require.NoError(t, err)

	record := memberships_testing.NewProjectMembership(uuid.New(), projectID)
	record.Label = "Host"
	record, err = projects.Revisions.DirectAdd(record, actorID)
	require.NoError(t, err)

	replacement, err := projects.Revisions.Replace(record, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldIsUsher: true,
	})
	require.NoError(t, err)

	assert.Equal(t, memberships_enums.RecordTypeAmend, replacement.RecordType)
	assert.True(t, replacement.IsUsher)
	assert.Equal(t, "Host", replacement.Label)
	require.NotNil(t, replacement.Seq)
	assert.Equal(t, 2, *replacement.Seq)

	assert.True(t, record.IsRevoked())
	assert.Equal(t, &actorID, record.RevokedByID)

	active, err := projects.Queries.GetActiveMembership(record.UserID, projectID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, replacement.ID, active.ID)
	assert.True(t, active.IsUsher)

	stored, err := projects.Queries.GetByID(record.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked())

	memberships_testing.AssertAtMostOneActive(t, db)
}

func Test_Replace_WhenFieldIsUnknown_ReturnsUnknownFieldError(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), actorID)
	require.NoError(t, err)

	_, err = projects.Revisions.Replace(record, actorID, false, memberships_models.RoleChanges{
		"is_owner": true,
	})
	assert.ErrorIs(t, err, ErrUnknownField)

	var unknownFieldErr *UnknownFieldError
	require.True(t, errors.As(err, &unknownFieldErr))
	assert.Equal(t, "is_owner", unknownFieldErr.Field)
	assert.Equal(t, "project_membership", unknownFieldErr.Variant)

	assert.False(t, record.IsRevoked())
	assert.Equal(t, int64(1), memberships_testing.CountRows(t, db, record))
}

func Test_Replace_WhenValueHasWrongType_ReturnsFieldValueError(t *testing.T) {
	services, _ := createTestServices(t)
	organizations := services.Organizations

	actorID := uuid.New()

	record, err := organizations.Revisions.DirectAdd(
		memberships_testing.NewOrganizationMembership(uuid.New(), uuid.New(), memberships_enums.OrganizationRoleMember),
		actorID,
	)
	require.NoError(t, err)

	_, err = organizations.Revisions.Replace(record, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldRole: "SUPERUSER",
	})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	var fieldValueErr *FieldValueError
	require.True(t, errors.As(err, &fieldValueErr))
	assert.Equal(t, memberships_models.FieldRole, fieldValueErr.Field)

	promoted, err := organizations.Revisions.Replace(record, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldRole: memberships_enums.OrganizationRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, memberships_enums.OrganizationRoleAdmin, promoted.Role)
}

func Test_Replace_WhenRecordIsRevoked_ReturnsErrAlreadyRevoked(t *testing.T) {
	services, _ := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), actorID)
	require.NoError(t, err)
	require.NoError(t, projects.Revisions.Revoke(record, actorID))

	_, err = projects.Revisions.Replace(record, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldIsEditor: true,
	})
	assert.ErrorIs(t, err, ErrAlreadyRevoked)
}

func Test_Replace_WhenStaleCopyWasAlreadyReplaced_ReturnsErrAlreadyRevoked(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), actorID)
	require.NoError(t, err)

	staleCopy, err := projects.Queries.GetByID(record.ID)
	require.NoError(t, err)

	_, err = projects.Revisions.Replace(record, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldIsEditor: true,
	})
	require.NoError(t, err)

	_, err = projects.Revisions.Replace(staleCopy, actorID, false, memberships_models.RoleChanges{
		memberships_models.FieldIsPromoter: true,
	})
	assert.ErrorIs(t, err, ErrAlreadyRevoked)
	assert.True(t, IsRetryable(err))
	assert.False(t, staleCopy.IsRevoked(), "failed replace must not touch the in-memory record")

	assert.Equal(t, int64(2), memberships_testing.CountRows(t, db, record))
	memberships_testing.AssertAtMostOneActive(t, db)
}

func Test_Revoke_WhenAlreadyRevoked_ReturnsErrAlreadyRevoked(t *testing.T) {
	services, _ := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), actorID)
	require.NoError(t, err)

	staleCopy, err := projects.Queries.GetByID(record.ID)
	require.NoError(t, err)

	require.NoError(t, projects.Revisions.Revoke(record, actorID))
	assert.True(t, record.IsRevoked())

	assert.ErrorIs(t, projects.Revisions.Revoke(record, actorID), ErrAlreadyRevoked)
	assert.ErrorIs(t, projects.Revisions.Revoke(staleCopy, actorID), ErrAlreadyRevoked)
}

func Test_AmendBy_WithoutCommit_WritesNothing(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), actorID)
	require.NoError(t, err)

	amendment := projects.Revisions.AmendBy(record, actorID).
		Set(memberships_models.FieldIsEditor, true).
		Set(memberships_models.FieldLabel, "Host")

	value, err := amendment.Value(memberships_models.FieldLabel)
	require.NoError(t, err)
	assert.Equal(t, "Host", value)

	value, err = amendment.Value(memberships_models.FieldIsUsher)
	require.NoError(t, err)
	assert.Equal(t, false, value)

	_, err = amendment.Value("is_owner")
	assert.ErrorIs(t, err, ErrUnknownField)

	assert.Len(t, amendment.Changes(), 2)
	assert.False(t, record.IsEditor)
	assert.Equal(t, int64(1), memberships_testing.CountRows(t, db, record))
}

func Test_AmendBy_WhenCommitted_WritesOneRevision(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), actorID)
	require.NoError(t, err)

	amended, err := projects.Revisions.AmendBy(record, actorID).
		Set(memberships_models.FieldIsEditor, true).
		Set(memberships_models.FieldIsPromoter, true).
		Set(memberships_models.FieldLabel, "Host").
		Commit()
	require.NoError(t, err)

	assert.True(t, amended.IsEditor)
	assert.True(t, amended.IsPromoter)
	assert.Equal(t, "Host", amended.Label)
	assert.Equal(t, int64(2), memberships_testing.CountRows(t, db, record))
}

func Test_AmendBy_WhenCommittedAsAnotherActor_AttributesRevisionToThatActor(t *testing.T) {
	services, _ := createTestServices(t)
	projects := services.Projects

	starterID, committerID := uuid.New(), uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), starterID)
	require.NoError(t, err)

	amended, err := projects.Revisions.AmendBy(record, starterID).
		Set(memberships_models.FieldIsUsher, true).
		CommitAs(committerID)
	require.NoError(t, err)

	require.NotNil(t, amended.GrantedByID)
	assert.Equal(t, committerID, *amended.GrantedByID)
	require.NotNil(t, record.RevokedByID)
	assert.Equal(t, committerID, *record.RevokedByID)
}

func Test_MergeAndReplace_KeepsFirstTruthyValuePerField(t *testing.T) {
	services, db := createTestServices(t)
	proposals := services.Proposals

	actorID, proposalID := uuid.New(), uuid.New()

	record := memberships_testing.NewProposalMembership(uuid.New(), proposalID)
	record.Label = "Author"
	record, err := proposals.Revisions.DirectAdd(record, actorID)
	require.NoError(t, err)

	other := memberships_testing.NewProposalMembership(uuid.New(), proposalID)
	other.Label = "Reviewer"
	other.IsUncredited = true
	other, err = proposals.Revisions.DirectAdd(other, actorID)
	require.NoError(t, err)

	merged, err := proposals.Revisions.MergeAndReplace(record, actorID, other)
	require.NoError(t, err)

	assert.Equal(t, "Author", merged.Label)
	assert.True(t, merged.IsUncredited)
	assert.Equal(t, record.UserID, merged.UserID)
	assert.True(t, record.IsRevoked())
	assert.True(t, other.IsRevoked())

	members, err := proposals.Queries.GetActiveMembers(proposalID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, merged.ID, members[0].ID)

	memberships_testing.AssertAtMostOneActive(t, db)
}

func Test_MergeAndReplace_WhenRecordIsInviteAndOtherIsActive_AcceptsFirst(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, projectID := uuid.New(), uuid.New()

	invite := memberships_testing.NewProjectMembership(uuid.New(), projectID)
	invite, err := projects.Revisions.Invite(invite, actorID)
	require.NoError(t, err)

	other := memberships_testing.NewProjectMembership(uuid.New(), projectID)
	other.IsEditor = true
	other, err = projects.Revisions.DirectAdd(other, actorID)
	require.NoError(t, err)

	merged, err := projects.Revisions.MergeAndReplace(invite, actorID, other)
	require.NoError(t, err)

	assert.Equal(t, memberships_enums.RecordTypeAmend, merged.RecordType)
	assert.True(t, merged.IsEditor)
	assert.True(t, merged.IsActive())

	chain, err := projects.Queries.GetChain(invite.UserID, projectID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, memberships_enums.RecordTypeInvite, chain[0].RecordType)
	assert.Equal(t, memberships_enums.RecordTypeAccept, chain[1].RecordType)
	assert.Equal(t, merged.ID, chain[2].ID)

	memberships_testing.AssertAtMostOneActive(t, db)
}

func Test_MergeAndReplace_WhenOtherIsRevoked_ReturnsErrAlreadyRevoked(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID, projectID := uuid.New(), uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), projectID), actorID)
	require.NoError(t, err)
	other, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), projectID), actorID)
	require.NoError(t, err)
	require.NoError(t, projects.Revisions.Revoke(other, actorID))

	_, err = projects.Revisions.MergeAndReplace(record, actorID, other)
	assert.ErrorIs(t, err, ErrAlreadyRevoked)
	assert.False(t, record.IsRevoked())
	assert.Equal(t, int64(2), memberships_testing.CountRows(t, db, record))
}

func Test_MergeRecords_WhenVariantsDiffer_ReturnsErrMergeTypeMismatch(t *testing.T) {
	services, _ := createTestServices(t)

	actorID, parentID := uuid.New(), uuid.New()

	project, err := services.Projects.Revisions.DirectAdd(
		memberships_testing.NewProjectMembership(uuid.New(), parentID),
		actorID,
	)
	require.NoError(t, err)

	sponsor, err := services.Sponsors.Revisions.DirectAdd(
		memberships_testing.NewSponsorMembership(uuid.New(), parentID),
		actorID,
	)
	require.NoError(t, err)

	_, err = services.MergeRecords(actorID, project, sponsor)
	assert.ErrorIs(t, err, ErrMergeTypeMismatch)
	assert.False(t, project.IsRevoked())
	assert.False(t, sponsor.IsRevoked())
}

func Test_MergeRecords_WhenVariantsMatch_Merges(t *testing.T) {
	services, _ := createTestServices(t)

	actorID, parentID := uuid.New(), uuid.New()

	record, err := services.Sponsors.Revisions.DirectAdd(
		memberships_testing.NewSponsorMembership(uuid.New(), parentID),
		actorID,
	)
	require.NoError(t, err)

	other := memberships_testing.NewSponsorMembership(uuid.New(), parentID)
	other.IsPromoted = true
	other, err = services.Sponsors.Revisions.DirectAdd(other, actorID)
	require.NoError(t, err)

	merged, err := services.MergeRecords(actorID, record, other)
	require.NoError(t, err)

	sponsor, ok := merged.(*memberships_models.SponsorMembership)
	require.True(t, ok)
	assert.True(t, sponsor.IsPromoted)
	assert.Equal(t, record.ProfileID, sponsor.ProfileID)
}

func Test_WithTx_WhenCallerRollsBack_DiscardsRevision(t *testing.T) {
	services, db := createTestServices(t)
	projects := services.Projects

	actorID := uuid.New()

	record, err := projects.Revisions.DirectAdd(memberships_testing.NewProjectMembership(uuid.New(), uuid.New()), actorID)
	require.NoError(t, err)

	pending := NewPendingChanges()
	rollback := errors.New("rollback")
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := projects.Revisions.WithTx(tx, pending).Replace(record, actorID, false, memberships_models.RoleChanges{
			memberships_models.FieldIsEditor: true,
		})
		require.NoError(t, err)

		return rollback
	})
	assert.ErrorIs(t, err, rollback)
	assert.Equal(t, 1, pending.Len())
	pending.Discard()
	assert.Equal(t, 0, pending.Len())

	stored, err := projects.Queries.GetByID(record.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRevoked())
	assert.Equal(t, int64(1), memberships_testing.CountRows(t, db, record))
}
