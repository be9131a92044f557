package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/patarapolw/tinydb-constraint/internal/constraint"
	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Scenario defines a constraint test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Options configure the table under test.
	Options Options `yaml:"options,omitempty"`

	// Schema is applied with SetSchema before the first step.
	Schema schema.Config `yaml:"schema,omitempty"`

	// Steps run in order against the table.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state of the table.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Options configure the table a scenario runs against.
type Options struct {
	// Sanitize toggles the sanitize pipeline. Default: on.
	Sanitize *bool `yaml:"sanitize,omitempty"`

	// Coerce toggles string coercion. Default: on.
	Coerce *bool `yaml:"coerce,omitempty"`

	// DateMode is "strict" or "lenient". Default: strict.
	DateMode string `yaml:"date_mode,omitempty"`

	// Store is "sqlite" (in-memory database) or "memory". Default: sqlite.
	Store string `yaml:"store,omitempty"`
}

// Step is one operation against the table. Exactly one operation field is
// set.
type Step struct {
	Insert       docstore.Document   `yaml:"insert,omitempty"`
	InsertMany   []docstore.Document `yaml:"insert_many,omitempty"`
	Update       *UpdateStep         `yaml:"update,omitempty"`
	SetSchema    schema.Config       `yaml:"set_schema,omitempty"`
	UpdateSchema schema.Config       `yaml:"update_schema,omitempty"`
	Refresh      bool                `yaml:"refresh,omitempty"`

	// Expect is the constraint error code the step must fail with.
	// Empty means the step must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// UpdateStep merges Set into the documents matched by Match and IDs.
type UpdateStep struct {
	Set   docstore.Document `yaml:"set"`
	Match []string          `yaml:"match,omitempty"`
	IDs   []docstore.DocID  `yaml:"ids,omitempty"`
}

// Step operation names.
const (
	OpInsert       = "insert"
	OpInsertMany   = "insert_many"
	OpUpdate       = "update"
	OpSetSchema    = "set_schema"
	OpUpdateSchema = "update_schema"
	OpRefresh      = "refresh"
)

// ops returns the names of the operations set on s.
func (s Step) ops() []string {
	var ops []string
	if s.Insert != nil {
		ops = append(ops, OpInsert)
	}
	if s.InsertMany != nil {
		ops = append(ops, OpInsertMany)
	}
	if s.Update != nil {
		ops = append(ops, OpUpdate)
	}
	if s.SetSchema != nil {
		ops = append(ops, OpSetSchema)
	}
	if s.UpdateSchema != nil {
		ops = append(ops, OpUpdateSchema)
	}
	if s.Refresh {
		ops = append(ops, OpRefresh)
	}
	return ops
}

// Op returns the step's operation name.
func (s Step) Op() string {
	if ops := s.ops(); len(ops) == 1 {
		return ops[0]
	}
	return ""
}

// Assertion validates the final state of the table.
type Assertion struct {
	// Type is one of schema, live_schema or documents.
	Type string `yaml:"type"`

	// Field is the checked field (schema, live_schema).
	Field string `yaml:"field,omitempty"`

	// Expect is the expected type of Field (schema, live_schema). Empty
	// skips the type check.
	Expect schema.TypeSpec `yaml:"expect,omitempty"`

	// NotNull and Unique check the field's flags when set.
	NotNull *bool `yaml:"not_null,omitempty"`
	Unique  *bool `yaml:"unique,omitempty"`

	// Count is the expected number of documents (documents).
	Count *int `yaml:"count,omitempty"`

	// Contains lists documents that must be stored (documents). Each is a
	// subset match against the stored documents.
	Contains []docstore.Document `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertSchema     = "schema"
	AssertLiveSchema = "live_schema"
	AssertDocuments  = "documents"
)

var errorCodes = map[string]bool{
	string(constraint.ErrCodeNonUniformType):  true,
	string(constraint.ErrCodeNotNull):         true,
	string(constraint.ErrCodeNotUnique):       true,
	string(constraint.ErrCodeSchemaAmbiguous):  true,
	string(constraint.ErrCodeUnsupportedValue): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if s.Options.DateMode != "" {
		if _, err := value.DateParserFor(s.Options.DateMode); err != nil {
			return fmt.Errorf("options.date_mode: %w", err)
		}
	}

	switch s.Options.Store {
	case "", "sqlite", "memory":
	default:
		return fmt.Errorf("options.store: unknown store %q", s.Options.Store)
	}

	for i, step := range s.Steps {
		switch ops := step.ops(); len(ops) {
		case 0:
			return fmt.Errorf("steps[%d]: an operation is required", i)
		case 1:
		default:
			return fmt.Errorf("steps[%d]: exactly one operation allowed, got %v", i, ops)
		}
		if step.Update != nil && step.Update.Set == nil {
			return fmt.Errorf("steps[%d].update: set is required", i)
		}
		if step.Expect != "" && !errorCodes[step.Expect] {
			return fmt.Errorf("steps[%d].expect: unknown error code %q", i, step.Expect)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSchema, AssertLiveSchema:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for %s", index, a.Type)
		}
		if len(a.Expect) == 0 && a.NotNull == nil && a.Unique == nil {
			return fmt.Errorf("assertions[%d]: one of expect, not_null or unique is required for %s", index, a.Type)
		}
	case AssertDocuments:
		if a.Count == nil && len(a.Contains) == 0 {
			return fmt.Errorf("assertions[%d]: count or contains is required for documents", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for documents", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
