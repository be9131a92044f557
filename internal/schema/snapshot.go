package schema

import (
	"slices"

	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Snapshot is a point-in-time view of a schema.
type Snapshot struct {
	Types   map[string]TypeSpec `json:"types" yaml:"types"`
	NotNull []string            `json:"not_null" yaml:"not_null"`
	Unique  []string            `json:"unique" yaml:"unique"`
}

// Type returns the scalar type of field, or false when the field is unknown
// or in list form.
func (s Snapshot) Type(field string) (value.FieldType, bool) {
	return s.Types[field].Scalar()
}

// Fields returns every field mentioned by the snapshot, sorted.
func (s Snapshot) Fields() []string {
	set := make(map[string]struct{}, len(s.Types))
	for field := range s.Types {
		set[field] = struct{}{}
	}
	for _, field := range s.NotNull {
		set[field] = struct{}{}
	}
	for _, field := range s.Unique {
		set[field] = struct{}{}
	}
	fields := make([]string, 0, len(set))
	for field := range set {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}

// Config converts the snapshot into a configuration that Apply would turn
// back into the same snapshot.
func (s Snapshot) Config() Config {
	cfg := make(Config, len(s.Types))
	for _, field := range s.Fields() {
		cfg[field] = FieldSpec{
			Types:   slices.Clone(s.Types[field]),
			NotNull: slices.Contains(s.NotNull, field),
			Unique:  slices.Contains(s.Unique, field),
		}
	}
	return cfg
}
