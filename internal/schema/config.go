package schema

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// TypeSpec is the type entry of a field. One element is a scalar type;
// several elements are the list form of a non-uniform field.
type TypeSpec []value.FieldType

// Scalar returns the single type, or false for an empty or list-form spec.
func (s TypeSpec) Scalar() (value.FieldType, bool) {
	if len(s) != 1 {
		return 0, false
	}
	return s[0], true
}

// IsList reports whether the spec is in list form.
func (s TypeSpec) IsList() bool { return len(s) > 1 }

// Contains reports whether t is one of the spec's types.
func (s TypeSpec) Contains(t value.FieldType) bool { return slices.Contains(s, t) }

func (s TypeSpec) String() string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.String()
	}
	if len(names) == 1 {
		return names[0]
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func (s TypeSpec) names() any {
	if len(s) == 1 {
		return s[0].String()
	}
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.String()
	}
	return names
}

// MarshalJSON renders a scalar as a bare tag and a list as an array.
func (s TypeSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.names())
}

// UnmarshalJSON accepts a bare tag or an array of tags.
func (s *TypeSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		return s.set(names)
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("type must be a tag or a list of tags: %w", err)
	}
	return s.set([]string{name})
}

// MarshalYAML renders a scalar as a bare tag and a list as a sequence.
func (s TypeSpec) MarshalYAML() (any, error) {
	return s.names(), nil
}

// UnmarshalYAML accepts a bare tag or a sequence of tags.
func (s *TypeSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return s.set([]string{node.Value})
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		return s.set(names)
	default:
		return fmt.Errorf("line %d: type must be a tag or a list of tags", node.Line)
	}
}

func (s *TypeSpec) set(names []string) error {
	spec, err := ParseTypeSpec(names...)
	if err != nil {
		return err
	}
	*s = spec
	return nil
}

// ParseTypeSpec parses tag names, dropping duplicates while keeping order.
func ParseTypeSpec(names ...string) (TypeSpec, error) {
	var spec TypeSpec
	for _, name := range names {
		t, err := value.ParseFieldType(name)
		if err != nil {
			return nil, err
		}
		if !spec.Contains(t) {
			spec = append(spec, t)
		}
	}
	return spec, nil
}

// FieldSpec is the configuration of one field.
type FieldSpec struct {
	// Types is the expected type. Empty leaves the type to inference.
	Types TypeSpec `json:"type,omitempty" yaml:"type,omitempty"`
	// NotNull requires the field in every record.
	NotNull bool `json:"not_null,omitempty" yaml:"not_null,omitempty"`
	// Unique activates uniqueness tracking for the field.
	Unique bool `json:"unique,omitempty" yaml:"unique,omitempty"`
	// TypeOnly marks a spec given as a bare tag or list of tags. Merging it
	// replaces the type and leaves the field's flags as they are.
	TypeOnly bool `json:"-" yaml:"-"`
}

// Field returns a type-only FieldSpec of the given type.
func Field(t value.FieldType) FieldSpec {
	return FieldSpec{Types: TypeSpec{t}, TypeOnly: true}
}

type fieldDescriptor struct {
	Types   TypeSpec `json:"type" yaml:"type"`
	NotNull bool     `json:"not_null" yaml:"not_null"`
	Unique  bool     `json:"unique" yaml:"unique"`
}

// UnmarshalYAML accepts a bare tag, a list of tags or a
// {type, not_null, unique} mapping.
func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		var types TypeSpec
		if err := node.Decode(&types); err != nil {
			return err
		}
		*f = FieldSpec{Types: types, TypeOnly: true}
		return nil
	}
	var d fieldDescriptor
	if err := node.Decode(&d); err != nil {
		return err
	}
	*f = FieldSpec{Types: d.Types, NotNull: d.NotNull, Unique: d.Unique}
	return nil
}

// UnmarshalJSON accepts the same shapes as UnmarshalYAML.
func (f *FieldSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		var types TypeSpec
		if err := types.UnmarshalJSON(data); err != nil {
			return err
		}
		*f = FieldSpec{Types: types, TypeOnly: true}
		return nil
	}
	var d fieldDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	*f = FieldSpec{Types: d.Types, NotNull: d.NotNull, Unique: d.Unique}
	return nil
}

// Config maps field names to their configuration.
type Config map[string]FieldSpec

// Fields returns the configured field names in sorted order.
func (c Config) Fields() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
