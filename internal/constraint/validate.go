package constraint

import (
	"context"
	"fmt"
	"slices"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// refresh scans every stored document in store order and validates it
// against m.
//
// For each document:
//   - every field type known to m must match, or be a number on a String
//     field; unknown and list-form fields are not checked
//   - every not-null field must be present
//   - every value of a unique field must not repeat within the scan, and is
//     merged into m's uniqueness index
//
// The scan stops at the first violation. Index entries merged before it are
// kept. Types are only collected during the scan; once it succeeds, fields
// unknown to m that showed a single type are learned. An unknown field with
// several types fails a scan without snapshot as SchemaAmbiguous. When
// wantSnapshot is set, the returned snapshot reports the distinct
// types observed per field in order of first sighting, collapsed to a single
// type when they agree; fields never observed keep their type from m.
func (t *Table) refresh(ctx context.Context, m *schema.Model, wantSnapshot bool, mode string) (*schema.Snapshot, error) {
	entries, err := t.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if t.metrics != nil {
		t.metrics.Refreshes.WithLabelValues(t.name, mode).Inc()
		t.metrics.DocumentsScanned.WithLabelValues(t.name).Add(float64(len(entries)))
	}

	observed := make(map[string]schema.TypeSpec)
	scanned := make(map[string]map[any]struct{})
	notNull := m.NotNull()
	unique := m.UniqueFields()

	for _, e := range entries {
		fields, err := t.norm.Fields(e.Doc)
		if err != nil {
			return nil, unsupported(err)
		}

		present := make(map[string]value.Field, len(fields))
		for _, f := range fields {
			present[f.Name] = f
			if !observed[f.Name].Contains(f.Type) {
				observed[f.Name] = append(observed[f.Name], f.Type)
			}
			if err := checkType(m, f); err != nil {
				return nil, err
			}
		}

		var missing []string
		for _, field := range notNull {
			if _, ok := present[field]; !ok {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return nil, NewNotNullError(missing)
		}

		for _, field := range unique {
			f, ok := present[field]
			if !ok {
				continue
			}
			key := f.Value
			if spec, _ := m.Lookup(field); spec.Contains(value.String) && !spec.IsList() {
				key = value.Stringify(f.Value)
			}
			if _, dup := scanned[field][key]; dup {
				return nil, NewNotUniqueError(field, key)
			}
			if scanned[field] == nil {
				scanned[field] = make(map[any]struct{})
			}
			scanned[field][key] = struct{}{}
			m.Remember(field, key)
		}
	}

	var mixed []string
	for field, types := range observed {
		if _, known := m.Lookup(field); known {
			continue
		}
		if len(types) == 1 {
			m.Learn(field, types[0])
		} else {
			mixed = append(mixed, field)
		}
	}
	if len(mixed) > 0 && !wantSnapshot {
		slices.Sort(mixed)
		return nil, NewSchemaAmbiguousError(mixed)
	}

	t.logger.Debug().Str("mode", mode).Int("documents", len(entries)).Msg("refresh complete")

	if !wantSnapshot {
		return nil, nil
	}
	snap := m.Snapshot()
	for field, types := range observed {
		snap.Types[field] = slices.Clone(types)
	}
	return &snap, nil
}

// checkType checks f against its field's scalar type in m. Fields unknown to
// m always pass.
func checkType(m *schema.Model, f value.Field) error {
	spec, ok := m.Lookup(f.Name)
	if !ok {
		return nil
	}
	current, scalar := spec.Scalar()
	if !scalar || current == f.Type {
		return nil
	}
	if current == value.String && f.Type.Numeric() {
		return nil
	}
	return NewNonUniformTypeError(f.Name, f.Value, f.Type, spec, m.Snapshot())
}
