package memberships_enums

// SubjectKind tells the merge engine which identity a variant is keyed on.
type SubjectKind string

const (
	SubjectKindUser    SubjectKind = "USER"
	SubjectKindProfile SubjectKind = "PROFILE"
)
