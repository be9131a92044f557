package constraint

import (
	"errors"
	"maps"
	"slices"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// sanitizer checks one write batch against the live schema.
//
// Types learned from earlier records of the batch apply to later ones, but
// reach the live schema only on commit, after the store accepted the batch.
// The sanitizer never adds to the uniqueness index; the refresh that follows
// the write does.
type sanitizer struct {
	t *Table

	// full is true for whole records (insert, UpdateFunc) and false for
	// merge payloads, which skip the not-null check.
	full bool

	learned map[string]value.FieldType
	batch   map[string]map[any]struct{}
}

func (t *Table) newSanitizer(full bool) (*sanitizer, error) {
	if ambiguous := t.model.Ambiguous(); len(ambiguous) > 0 {
		return nil, NewSchemaAmbiguousError(ambiguous)
	}
	return &sanitizer{
		t:       t,
		full:    full,
		learned: make(map[string]value.FieldType),
		batch:   make(map[string]map[any]struct{}),
	}, nil
}

// lookup returns the current type of field, batch-learned types included.
func (s *sanitizer) lookup(field string) (value.FieldType, bool) {
	if t, ok := s.learned[field]; ok {
		return t, true
	}
	spec, ok := s.t.model.Lookup(field)
	if !ok {
		return 0, false
	}
	return spec.Scalar()
}

// clean type-checks doc and returns its value view with numbers written to
// String fields converted to strings.
func (s *sanitizer) clean(doc docstore.Document) (docstore.Document, error) {
	fields, err := s.t.norm.Fields(doc)
	if err != nil {
		return nil, unsupported(err)
	}

	out := make(docstore.Document, len(fields))
	for _, f := range fields {
		current, ok := s.lookup(f.Name)
		switch {
		case !ok:
			s.learned[f.Name] = f.Type
			out[f.Name] = f.Value
		case current == f.Type:
			out[f.Name] = f.Value
		case current == value.String && f.Type.Numeric():
			out[f.Name] = value.Stringify(f.Value)
		default:
			spec, _ := s.t.model.Lookup(f.Name)
			if spec == nil {
				spec = schema.TypeSpec{current}
			}
			return nil, NewNonUniformTypeError(f.Name, f.Value, f.Type, spec, s.snapshot())
		}
	}

	if s.full {
		var missing []string
		for _, field := range s.t.model.NotNull() {
			if _, ok := out[field]; !ok {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return nil, NewNotNullError(missing)
		}
	}
	return out, nil
}

// checkUnique rejects values of unique fields that are already in the index
// or repeat within the batch. prev is the stored version of an updated
// document; keeping its own value is not a duplicate.
func (s *sanitizer) checkUnique(doc, prev docstore.Document) error {
	for _, field := range s.t.model.UniqueFields() {
		raw, ok := doc[field]
		if !ok {
			continue
		}
		key, ok, err := s.t.uniqueKey(field, raw)
		if err != nil {
			return NewUnsupportedValueError(field, err)
		}
		if !ok {
			continue
		}
		if _, dup := s.batch[field][key]; dup {
			return NewNotUniqueError(field, key)
		}
		if s.t.model.Seen(field, key) && !s.keeps(field, key, prev) {
			return NewNotUniqueError(field, key)
		}
		if s.batch[field] == nil {
			s.batch[field] = make(map[any]struct{})
		}
		s.batch[field][key] = struct{}{}
	}
	return nil
}

// keeps reports whether prev already holds key for field.
func (s *sanitizer) keeps(field string, key any, prev docstore.Document) bool {
	if prev == nil {
		return false
	}
	raw, ok := prev[field]
	if !ok {
		return false
	}
	old, ok, err := s.t.uniqueKey(field, raw)
	return err == nil && ok && old == key
}

// commit writes the batch-learned types into the live schema.
func (s *sanitizer) commit() {
	for _, field := range slices.Sorted(maps.Keys(s.learned)) {
		s.t.model.Learn(field, s.learned[field])
	}
}

// snapshot is the live schema with batch-learned types applied.
func (s *sanitizer) snapshot() schema.Snapshot {
	snap := s.t.model.Snapshot()
	for field, t := range s.learned {
		snap.Types[field] = schema.TypeSpec{t}
	}
	return snap
}

// uniqueKey is the index key of a raw value: its rendered value, converted
// to a string when the field is String so that widened numbers collide with
// their string form.
func (t *Table) uniqueKey(field string, raw any) (any, bool, error) {
	v, ok, err := t.norm.Render(raw)
	if err != nil || !ok {
		return nil, ok, err
	}
	if spec, known := t.model.Lookup(field); known {
		if current, scalar := spec.Scalar(); scalar && current == value.String {
			return value.Stringify(v), true, nil
		}
	}
	return v, true, nil
}

// unsupported converts a normalizer failure into an Error naming the field.
func unsupported(err error) error {
	var fe *value.FieldError
	if errors.As(err, &fe) {
		return NewUnsupportedValueError(fe.Field, fe.Err)
	}
	return NewUnsupportedValueError("", err)
}
