package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/schema"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSchema:
			err = assertSchema(result.Schema, a)
		case AssertLiveSchema:
			err = assertSchema(result.Live, a)
		case AssertDocuments:
			err = assertDocuments(result.Documents, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertSchema checks a field's type and flags in snap.
func assertSchema(snap schema.Snapshot, a Assertion) error {
	if len(a.Expect) > 0 {
		got, ok := snap.Types[a.Field]
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s: %s", a.Field, a.Expect),
				Actual:   "field not in schema",
			}
		}
		if !slices.Equal(got, a.Expect) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s: %s", a.Field, a.Expect),
				Actual:   fmt.Sprintf("%s: %s", a.Field, got),
			}
		}
	}
	if a.NotNull != nil {
		if got := slices.Contains(snap.NotNull, a.Field); got != *a.NotNull {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s not_null=%t", a.Field, *a.NotNull),
				Actual:   fmt.Sprintf("not_null=%v", snap.NotNull),
			}
		}
	}
	if a.Unique != nil {
		if got := slices.Contains(snap.Unique, a.Field); got != *a.Unique {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s unique=%t", a.Field, *a.Unique),
				Actual:   fmt.Sprintf("unique=%v", snap.Unique),
			}
		}
	}
	return nil
}

// assertDocuments checks the document count and that every expected
// document is matched by some stored document.
func assertDocuments(entries []docstore.Entry, a Assertion) error {
	if a.Count != nil && len(entries) != *a.Count {
		return &AssertionError{
			Type:     AssertDocuments,
			Expected: fmt.Sprintf("%d documents", *a.Count),
			Actual:   fmt.Sprintf("%d documents", len(entries)),
		}
	}
	for _, want := range a.Contains {
		if !slices.ContainsFunc(entries, func(e docstore.Entry) bool { return matchFields(e.Doc, want) }) {
			return &AssertionError{
				Type:     AssertDocuments,
				Expected: fmt.Sprintf("document matching %v", want),
				Actual:   "not found",
			}
		}
	}
	return nil
}

// matchFields checks if doc contains every field of want with an equal
// value (subset semantics).
func matchFields(doc, want docstore.Document) bool {
	for k, v := range want {
		got, ok := doc[k]
		if !ok || !docstore.Equal(got, v) {
			return false
		}
	}
	return true
}
