package memberships_enums

type RecordType string

const (
	RecordTypeInvite    RecordType = "INVITE"
	RecordTypeAccept    RecordType = "ACCEPT"
	RecordTypeDirectAdd RecordType = "DIRECT_ADD"
	RecordTypeAmend     RecordType = "AMEND"
)

func (t RecordType) IsValid() bool {
	switch t {
	case RecordTypeInvite, RecordTypeAccept, RecordTypeDirectAdd, RecordTypeAmend:
		return true
	default:
		return false
	}
}
