package memberships_models

import (
	"maps"
	"slices"
)

// RoleChanges maps role field names to their new values.
type RoleChanges map[string]any

// Field gives typed access to one role column of a variant.
type Field[T any] struct {
	get    func(*T) any
	set    func(*T, any) bool
	truthy func(*T) bool
}

func (f Field[T]) Get(record *T) any {
	return f.get(record)
}

// Set assigns value and reports false when value has the wrong type or is
// not an allowed value for the field.
func (f Field[T]) Set(record *T, value any) bool {
	return f.set(record, value)
}

func (f Field[T]) IsTruthy(record *T) bool {
	return f.truthy(record)
}

// Equals reports whether the field already holds value.
func (f Field[T]) Equals(record *T, value any) bool {
	probe := *record
	if !f.set(&probe, value) {
		return false
	}

	return f.get(&probe) == f.get(record)
}

func BoolField[T any](ref func(*T) *bool) Field[T] {
	return Field[T]{
		get: func(record *T) any { return *ref(record) },
		set: func(record *T, value any) bool {
			v, ok := value.(bool)
			if !ok {
				return false
			}

			*ref(record) = v
			return true
		},
		truthy: func(record *T) bool { return *ref(record) },
	}
}

func StringField[T any](ref func(*T) *string) Field[T] {
	return Field[T]{
		get: func(record *T) any { return *ref(record) },
		set: func(record *T, value any) bool {
			v, ok := value.(string)
			if !ok {
				return false
			}

			*ref(record) = v
			return true
		},
		truthy: func(record *T) bool { return *ref(record) != "" },
	}
}

// EnumField accepts either E or its plain string form. The empty value is
// always allowed and counts as unset.
func EnumField[T any, E ~string](ref func(*T) *E, isValid func(E) bool) Field[T] {
	return Field[T]{
		get: func(record *T) any { return *ref(record) },
		set: func(record *T, value any) bool {
			var v E
			switch typed := value.(type) {
			case E:
				v = typed
			case string:
				v = E(typed)
			default:
				return false
			}

			if v != "" && !isValid(v) {
				return false
			}

			*ref(record) = v
			return true
		},
		truthy: func(record *T) bool { return *ref(record) != "" },
	}
}

type FieldSet[T any] map[string]Field[T]

// Names returns the field names in a stable order.
func (fs FieldSet[T]) Names() []string {
	return slices.Sorted(maps.Keys(fs))
}

// Matches reports whether every change is already reflected on record.
// Unknown fields never match.
func (fs FieldSet[T]) Matches(record *T, changes RoleChanges) bool {
	for name, value := range changes {
		field, ok := fs[name]
		if !ok || !field.Equals(record, value) {
			return false
		}
	}

	return true
}
