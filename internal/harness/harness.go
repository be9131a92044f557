package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/patarapolw/tinydb-constraint/internal/constraint"
	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/docstore/sqlitestore"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Harness is the test execution engine.
// It runs the steps of one scenario against one fresh table.
type Harness struct {
	table  *constraint.Table
	closer io.Closer
	logger zerolog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store for isolation.
//
// Execution flow:
//  1. Create the store and the table from the scenario options
//  2. Apply the initial schema
//  3. Execute steps, checking each against its expect
//  4. Capture the final schema and documents
//  5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, zerolog.Nop())
}

// RunWithLogger is Run with table logging sent to logger.
func RunWithLogger(scenario *Scenario, logger zerolog.Logger) (*Result, error) {
	h, err := newHarness(scenario, logger)
	if err != nil {
		return nil, err
	}
	defer h.close()

	ctx := context.Background()
	result := NewResult()

	if scenario.Schema != nil {
		h.table.SetSchema(scenario.Schema)
	}

	for i, step := range scenario.Steps {
		outcome := h.executeStep(ctx, i, step)
		result.Steps = append(result.Steps, outcome)
		if msg := checkExpect(step, outcome); msg != "" {
			result.AddError(msg)
		}
	}

	if err := h.captureState(ctx, result); err != nil {
		result.AddError(err.Error())
		return result, nil
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario, logger zerolog.Logger) (*Harness, error) {
	mode := scenario.Options.DateMode
	if mode == "" {
		mode = value.DateModeStrict
	}
	dates, err := value.DateParserFor(mode)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	coerce := scenario.Options.Coerce == nil || *scenario.Options.Coerce
	sanitize := scenario.Options.Sanitize == nil || *scenario.Options.Sanitize
	norm := value.NewNormalizer(value.WithDateParser(dates), value.WithCoercion(coerce))

	h := &Harness{logger: logger.With().Str("scenario", scenario.Name).Logger()}

	var store docstore.Store
	switch scenario.Options.Store {
	case "memory":
		store = docstore.NewMemoryStore()
	default:
		db, err := sqlitestore.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		h.closer = db
		store = db.Table(scenario.Name)
	}

	h.table = constraint.New(store,
		constraint.WithName(scenario.Name),
		constraint.WithNormalizer(norm),
		constraint.WithSanitize(sanitize),
		constraint.WithLogger(h.logger),
	)
	return h, nil
}

func (h *Harness) close() {
	if h.closer != nil {
		if err := h.closer.Close(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to close store")
		}
	}
}

// executeStep runs one step and records its outcome.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) StepOutcome {
	outcome := StepOutcome{Index: index, Op: step.Op()}

	var (
		ids []docstore.DocID
		err error
	)
	switch outcome.Op {
	case OpInsert:
		var id docstore.DocID
		id, err = h.table.Insert(ctx, step.Insert)
		if err == nil {
			ids = []docstore.DocID{id}
		}
	case OpInsertMany:
		ids, err = h.table.InsertMultiple(ctx, step.InsertMany)
	case OpUpdate:
		ids, err = h.table.Update(ctx, step.Update.Set, step.Update.Match, step.Update.IDs...)
	case OpSetSchema:
		h.table.SetSchema(step.SetSchema)
	case OpUpdateSchema:
		h.table.UpdateSchema(step.UpdateSchema)
	case OpRefresh:
		err = h.table.Refresh(ctx)
	}

	outcome.IDs = ids
	if err != nil {
		outcome.Code = string(constraint.ErrorCodeOf(err))
		outcome.Error = err.Error()
		h.logger.Debug().Int("step", index).Str("op", outcome.Op).Err(err).Msg("step failed")
	}
	return outcome
}

// checkExpect compares a step outcome with the step's expect clause and
// returns a failure message, or "" when they agree.
func checkExpect(step Step, outcome StepOutcome) string {
	switch {
	case step.Expect == "" && outcome.Error != "":
		return fmt.Sprintf("steps[%d] %s: unexpected error: %s", outcome.Index, outcome.Op, outcome.Error)
	case step.Expect != "" && outcome.Error == "":
		return fmt.Sprintf("steps[%d] %s: expected %s, got success", outcome.Index, outcome.Op, step.Expect)
	case step.Expect != "" && outcome.Code != step.Expect:
		return fmt.Sprintf("steps[%d] %s: expected %s, got %s", outcome.Index, outcome.Op, step.Expect, outcome.Error)
	}
	return ""
}

// captureState records the final schema and documents without mutating the
// table.
func (h *Harness) captureState(ctx context.Context, result *Result) error {
	live, err := h.table.GetSchema(ctx, false)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	result.Live = live

	observed, err := h.table.Inspect(ctx)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	result.Schema = observed

	docs, err := h.table.Documents(ctx)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	result.Documents = docs
	return nil
}
