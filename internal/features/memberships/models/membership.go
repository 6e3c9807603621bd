package memberships_models

import (
	"time"

	memberships_enums "memberledger/internal/features/memberships/enums"

	"github.com/google/uuid"
)

// MembershipBase holds the revision columns shared by every membership table.
// A row is never updated after insert except to fill RevokedAt/RevokedByID
// once, or to move its seq.
type MembershipBase struct {
	ID          uuid.UUID                    `json:"id"          gorm:"column:id;primaryKey"`
	RecordType  memberships_enums.RecordType `json:"recordType"  gorm:"column:record_type"`
	GrantedAt   time.Time                    `json:"grantedAt"   gorm:"column:granted_at"`
	GrantedByID *uuid.UUID                   `json:"grantedById" gorm:"column:granted_by_id"`
	RevokedAt   *time.Time                   `json:"revokedAt"   gorm:"column:revoked_at"`
	RevokedByID *uuid.UUID                   `json:"revokedById" gorm:"column:revoked_by_id"`
}

func (b *MembershipBase) GetBase() *MembershipBase {
	return b
}

func (b *MembershipBase) IsRevoked() bool {
	return b.RevokedAt != nil
}

func (b *MembershipBase) IsInvite() bool {
	return b.RecordType == memberships_enums.RecordTypeInvite
}

// IsActive reports whether the record currently grants membership: it is
// unrevoked and not a pending invite.
func (b *MembershipBase) IsActive() bool {
	return !b.IsRevoked() && !b.IsInvite()
}

// Sequenced is embedded by variants whose active members are kept in a
// user-controlled order within their parent.
type Sequenced struct {
	Seq *int `json:"seq" gorm:"column:seq"`
}

func (s *Sequenced) GetSeq() *int {
	return s.Seq
}

func (s *Sequenced) SetSeq(seq *int) {
	s.Seq = seq
}

// Revisable is implemented by every membership variant.
type Revisable interface {
	GetBase() *MembershipBase
	SubjectID() uuid.UUID
	ParentID() uuid.UUID

	TableName() string
	VariantName() string
	SubjectColumn() string
	ParentColumn() string
	SubjectKind() memberships_enums.SubjectKind
}

type Reorderable interface {
	Revisable
	GetSeq() *int
	SetSeq(seq *int)
}

// Membership constrains generic services to a pointer to a variant struct.
type Membership[T any] interface {
	*T
	Revisable
	RoleFields() FieldSet[T]
}

type ReorderableMembership[T any] interface {
	Membership[T]
	GetSeq() *int
	SetSeq(seq *int)
}
