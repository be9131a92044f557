package docstore

import (
	"encoding/json"
	"reflect"
	"time"
)

// Predicate is a boolean test over a stored document.
type Predicate func(doc Document) bool

// Eq matches documents whose field equals v. Numbers compare by value
// across integer and float kinds; times compare with time.Time.Equal.
func Eq(field string, v any) Predicate {
	return func(doc Document) bool {
		got, ok := doc[field]
		return ok && Equal(got, v)
	}
}

// Has matches documents that contain field.
func Has(field string) Predicate {
	return func(doc Document) bool {
		_, ok := doc[field]
		return ok
	}
}

// And matches documents accepted by every predicate. And() matches all.
func And(preds ...Predicate) Predicate {
	return func(doc Document) bool {
		for _, p := range preds {
			if p != nil && !p(doc) {
				return false
			}
		}
		return true
	}
}

// Any matches every document.
func Any() Predicate {
	return func(Document) bool { return true }
}

// Matches applies where to doc, treating nil as Any.
func Matches(where Predicate, doc Document) bool {
	return where == nil || where(doc)
}

// Equal compares two stored values.
func Equal(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
