package harness

import (
	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/schema"
)

// StepOutcome records what one step did.
type StepOutcome struct {
	Index int              `json:"index"`
	Op    string           `json:"op"`
	IDs   []docstore.DocID `json:"ids,omitempty"`
	Code  string           `json:"code,omitempty"`
	Error string           `json:"-"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step met its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Steps records each step's outcome in order.
	Steps []StepOutcome `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Schema is the observed schema after the last step, taken without
	// mutating the table.
	Schema schema.Snapshot `json:"schema"`

	// Live is the live schema after the last step.
	Live schema.Snapshot `json:"live"`

	// Documents is the final table content with temporal values rendered.
	Documents []docstore.Entry `json:"documents"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Steps:     []StepOutcome{},
		Errors:    []string{},
		Documents: []docstore.Entry{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
