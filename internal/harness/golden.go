package harness

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
)

// StateSnapshot captures the outcome of a scenario execution in a form whose
// JSON encoding is identical across runs.
type StateSnapshot struct {
	Scenario  string           `json:"scenario"`
	Pass      bool             `json:"pass"`
	Steps     []StepOutcome    `json:"steps"`
	Schema    SchemaSnapshot   `json:"schema"`
	Live      SchemaSnapshot   `json:"live"`
	Documents []map[string]any `json:"documents"`
}

// SchemaSnapshot is a schema.Snapshot with types rendered as text.
type SchemaSnapshot struct {
	Types   map[string]string `json:"types"`
	NotNull []string          `json:"not_null"`
	Unique  []string          `json:"unique"`
}

func newSchemaSnapshot(s schema.Snapshot) SchemaSnapshot {
	types := make(map[string]string, len(s.Types))
	for field, spec := range s.Types {
		types[field] = spec.String()
	}
	return SchemaSnapshot{
		Types:   types,
		NotNull: append([]string{}, s.NotNull...),
		Unique:  append([]string{}, s.Unique...),
	}
}

// NewStateSnapshot builds the snapshot of result for the named scenario.
func NewStateSnapshot(name string, result *Result) StateSnapshot {
	docs := make([]map[string]any, len(result.Documents))
	for i, e := range result.Documents {
		docs[i] = map[string]any{"id": e.ID, "doc": e.Doc}
	}
	return StateSnapshot{
		Scenario:  name,
		Pass:      result.Pass,
		Steps:     result.Steps,
		Schema:    newSchemaSnapshot(result.Schema),
		Live:      newSchemaSnapshot(result.Live),
		Documents: docs,
	}
}

// MarshalSnapshot encodes s as indented JSON with sorted map keys and a
// trailing newline.
func MarshalSnapshot(s StateSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its state snapshot against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden
// file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(NewStateSnapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
