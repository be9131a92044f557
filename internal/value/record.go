package value

import (
	"fmt"
	"slices"
	"time"
)

// FieldError reports the field whose raw value could not be normalized.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("field %q: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// Field is one present field of a normalized record.
type Field struct {
	Name string
	Type FieldType
	// Value is the rendered value: int64, float64 or string.
	Value any
}

// Fields normalizes every field of doc in sorted key order. Absent fields
// (nil or elidable) are skipped.
func (n *Normalizer) Fields(doc map[string]any) ([]Field, error) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		v, ok, err := n.Normalize(doc[k])
		if err != nil {
			return nil, &FieldError{Field: k, Err: err}
		}
		if !ok {
			continue
		}
		f := Field{Name: k, Type: Classify(v), Value: v}
		if t, isTime := v.(time.Time); isTime {
			f.Value = FormatISO(t)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// ValueView returns the rendered record: absent fields dropped and
// DateTime values formatted as ISO-8601.
func (n *Normalizer) ValueView(doc map[string]any) (map[string]any, error) {
	fields, err := n.Fields(doc)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	return out, nil
}

// TypeView returns the FieldType of every present field.
func (n *Normalizer) TypeView(doc map[string]any) (map[string]FieldType, error) {
	fields, err := n.Fields(doc)
	if err != nil {
		return nil, err
	}
	out := make(map[string]FieldType, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Type
	}
	return out, nil
}

// JSONify renders the temporal values of doc as ISO-8601 strings and leaves
// every other value untouched. Strings are not coerced.
func JSONify(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case time.Time:
			out[k] = FormatISO(val)
		case Date:
			out[k] = FormatISO(val.Midnight())
		default:
			out[k] = v
		}
	}
	return out
}
