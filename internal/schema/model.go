package schema

import (
	"maps"
	"slices"

	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Model is the live schema of one table.
// Not safe for concurrent use; the owning table serializes access.
type Model struct {
	types       map[string]TypeSpec
	notNull     map[string]struct{}
	preexisting map[string]map[any]struct{}
}

// New returns an empty Model.
func New() *Model {
	m := &Model{}
	m.Reset()
	return m
}

// Reset discards every learned type, flag and uniqueness value.
func (m *Model) Reset() {
	m.types = make(map[string]TypeSpec)
	m.notNull = make(map[string]struct{})
	m.preexisting = make(map[string]map[any]struct{})
}

// Lookup returns the type entry of a field.
func (m *Model) Lookup(field string) (TypeSpec, bool) {
	spec, ok := m.types[field]
	return spec, ok
}

// Learn records t as the type of field if the field has no type yet.
// It reports a conflict when the field already has a different scalar type
// or is in list form; the existing entry is left untouched in that case.
func (m *Model) Learn(field string, t value.FieldType) (conflict bool) {
	spec, ok := m.types[field]
	if !ok {
		m.types[field] = TypeSpec{t}
		return false
	}
	current, scalar := spec.Scalar()
	return !scalar || current != t
}

// Ambiguous returns the fields in list form, sorted.
func (m *Model) Ambiguous() []string {
	var fields []string
	for field, spec := range m.types {
		if spec.IsList() {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields
}

// NotNull returns the not-null fields, sorted.
func (m *Model) NotNull() []string {
	return slices.Sorted(maps.Keys(m.notNull))
}

// UniqueFields returns the fields with active uniqueness tracking, sorted.
func (m *Model) UniqueFields() []string {
	return slices.Sorted(maps.Keys(m.preexisting))
}

// IsUnique reports whether uniqueness tracking is active for field.
func (m *Model) IsUnique(field string) bool {
	_, ok := m.preexisting[field]
	return ok
}

// Seen reports whether v was already accepted for a unique field.
func (m *Model) Seen(field string, v any) bool {
	_, ok := m.preexisting[field][v]
	return ok
}

// Remember adds v to the accepted values of a unique field. It is a no-op
// for fields without uniqueness tracking.
func (m *Model) Remember(field string, v any) {
	if set, ok := m.preexisting[field]; ok {
		set[v] = struct{}{}
	}
}

// Accepted returns the number of values accepted for a unique field.
func (m *Model) Accepted(field string) int {
	return len(m.preexisting[field])
}

// Apply merges cfg into the model. A field's type is replaced when the spec
// names one; not-null and unique follow the spec's flags unless the spec is
// type-only. Enabling unique on a field that is already tracked keeps its
// accepted values.
func (m *Model) Apply(cfg Config) {
	for field, spec := range cfg {
		if len(spec.Types) > 0 {
			m.types[field] = slices.Clone(spec.Types)
		}
		if spec.TypeOnly {
			continue
		}
		if spec.NotNull {
			m.notNull[field] = struct{}{}
		} else {
			delete(m.notNull, field)
		}
		if spec.Unique {
			if _, ok := m.preexisting[field]; !ok {
				m.preexisting[field] = make(map[any]struct{})
			}
		} else {
			delete(m.preexisting, field)
		}
	}
}

// Clone returns a deep copy, uniqueness values included.
func (m *Model) Clone() *Model {
	c := &Model{
		types:       make(map[string]TypeSpec, len(m.types)),
		notNull:     maps.Clone(m.notNull),
		preexisting: make(map[string]map[any]struct{}, len(m.preexisting)),
	}
	for field, spec := range m.types {
		c.types[field] = slices.Clone(spec)
	}
	for field, set := range m.preexisting {
		c.preexisting[field] = maps.Clone(set)
	}
	return c
}

// Snapshot returns a copy of the current types, not-null set and the list
// of unique fields. It does not include the accepted values.
func (m *Model) Snapshot() Snapshot {
	types := make(map[string]TypeSpec, len(m.types))
	for field, spec := range m.types {
		types[field] = slices.Clone(spec)
	}
	return Snapshot{
		Types:   types,
		NotNull: append([]string{}, m.NotNull()...),
		Unique:  append([]string{}, m.UniqueFields()...),
	}
}
