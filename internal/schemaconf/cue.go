package schemaconf

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
)

// CompileError represents a schema configuration error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseCUE evaluates CUE source and compiles its top-level fields.
// filename is only used in error positions.
func ParseCUE(filename string, data []byte) (schema.Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return CompileCUE(v)
}

// CompileCUE converts an evaluated CUE struct into a schema configuration.
// Definitions and hidden fields are ignored.
func CompileCUE(v cue.Value) (schema.Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	cfg := schema.Config{}
	for iter.Next() {
		name := iter.Label()
		spec, err := compileField(name, iter.Value())
		if err != nil {
			return nil, err
		}
		cfg[name] = spec
	}
	return cfg, nil
}

// compileField accepts a tag, a list of tags or a descriptor struct.
func compileField(name string, v cue.Value) (schema.FieldSpec, error) {
	switch v.IncompleteKind() {
	case cue.StringKind, cue.ListKind:
		types, err := compileTypes(name, v)
		if err != nil {
			return schema.FieldSpec{}, err
		}
		return schema.FieldSpec{Types: types, TypeOnly: true}, nil
	case cue.StructKind:
		return compileDescriptor(name, v)
	default:
		return schema.FieldSpec{}, &CompileError{
			Field:   name,
			Message: fmt.Sprintf("expected a type tag, a list of tags or a descriptor, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func compileDescriptor(name string, v cue.Value) (schema.FieldSpec, error) {
	var spec schema.FieldSpec

	iter, err := v.Fields()
	if err != nil {
		return spec, formatCUEError(err)
	}
	for iter.Next() {
		key := iter.Label()
		fv := iter.Value()
		switch key {
		case "type":
			types, err := compileTypes(name+".type", fv)
			if err != nil {
				return spec, err
			}
			spec.Types = types
		case "not_null":
			b, err := fv.Bool()
			if err != nil {
				return spec, formatCUEError(err)
			}
			spec.NotNull = b
		case "unique":
			b, err := fv.Bool()
			if err != nil {
				return spec, formatCUEError(err)
			}
			spec.Unique = b
		default:
			return spec, &CompileError{
				Field:   name + "." + key,
				Message: "unknown descriptor key (want type, not_null or unique)",
				Pos:     fv.Pos(),
			}
		}
	}
	return spec, nil
}

func compileTypes(field string, v cue.Value) (schema.TypeSpec, error) {
	var names []string
	if v.IncompleteKind() == cue.ListKind {
		if err := v.Decode(&names); err != nil {
			return nil, formatCUEError(err)
		}
	} else {
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		names = []string{s}
	}

	types, err := schema.ParseTypeSpec(names...)
	if err != nil {
		return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	if len(types) == 0 {
		return nil, &CompileError{Field: field, Message: "empty type list", Pos: v.Pos()}
	}
	return types, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
