package constraint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// Error represents a constraint violation detected while sanitizing a write
// or scanning the table.
//
// Violations include:
//   - Non-uniform type: a value's type conflicts with the field's schema type
//   - Not null: a record lacks a value for a not-null field
//   - Not unique: a value repeats an accepted value of a unique field
//   - Schema ambiguous: the schema holds a field in list form
//   - Unsupported value: a raw value outside the closed type set
type Error struct {
	// Code identifies the violation category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending field, when there is exactly one.
	Field string

	// Value is the offending value (NotUnique, NonUniformType).
	Value any

	// Type is the observed type of Value (NonUniformType).
	Type value.FieldType

	// Fields lists the missing fields (NotNull) or the list-form fields
	// (SchemaAmbiguous).
	Fields []string

	// Snapshot is the schema at the time of the violation (NonUniformType).
	Snapshot *schema.Snapshot

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes constraint violations.
type ErrorCode string

const (
	// ErrCodeNonUniformType indicates a type conflict outside String widening.
	ErrCodeNonUniformType ErrorCode = "NON_UNIFORM_TYPE"

	// ErrCodeNotNull indicates a missing not-null field.
	ErrCodeNotNull ErrorCode = "NOT_NULL"

	// ErrCodeNotUnique indicates a duplicate value on a unique field.
	ErrCodeNotUnique ErrorCode = "NOT_UNIQUE"

	// ErrCodeSchemaAmbiguous indicates an attempt to sanitize while a field
	// type is in list form.
	ErrCodeSchemaAmbiguous ErrorCode = "SCHEMA_AMBIGUOUS"

	// ErrCodeUnsupportedValue indicates a raw value the normalizer rejects.
	ErrCodeUnsupportedValue ErrorCode = "UNSUPPORTED_VALUE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (fields=%s)", e.Code, e.Message, strings.Join(e.Fields, ","))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// ErrorCodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func ErrorCodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsNonUniformType returns true if the error is a type conflict.
// Uses errors.As to handle wrapped errors.
func IsNonUniformType(err error) bool {
	return ErrorCodeOf(err) == ErrCodeNonUniformType
}

// IsNotNull returns true if the error is a not-null violation.
func IsNotNull(err error) bool {
	return ErrorCodeOf(err) == ErrCodeNotNull
}

// IsNotUnique returns true if the error is a uniqueness violation.
func IsNotUnique(err error) bool {
	return ErrorCodeOf(err) == ErrCodeNotUnique
}

// IsSchemaAmbiguous returns true if the schema was in list form.
func IsSchemaAmbiguous(err error) bool {
	return ErrorCodeOf(err) == ErrCodeSchemaAmbiguous
}

// IsUnsupportedValue returns true if a raw value was rejected.
func IsUnsupportedValue(err error) bool {
	return ErrorCodeOf(err) == ErrCodeUnsupportedValue
}

// NewNonUniformTypeError creates an Error for a type conflict on field.
func NewNonUniformTypeError(field string, v any, observed value.FieldType, want schema.TypeSpec, snap schema.Snapshot) *Error {
	return &Error{
		Code:     ErrCodeNonUniformType,
		Message:  fmt.Sprintf("value %v is %s, schema expects %s", v, observed, want),
		Field:    field,
		Value:    v,
		Type:     observed,
		Snapshot: &snap,
	}
}

// NewNotNullError creates an Error naming the missing not-null fields.
func NewNotNullError(missing []string) *Error {
	return &Error{
		Code:    ErrCodeNotNull,
		Message: "missing value for not-null field",
		Fields:  missing,
	}
}

// NewNotUniqueError creates an Error for a duplicate value.
func NewNotUniqueError(field string, v any) *Error {
	return &Error{
		Code:    ErrCodeNotUnique,
		Message: fmt.Sprintf("duplicate value %v", v),
		Field:   field,
		Value:   v,
	}
}

// NewSchemaAmbiguousError creates an Error naming the list-form fields.
func NewSchemaAmbiguousError(fields []string) *Error {
	return &Error{
		Code:    ErrCodeSchemaAmbiguous,
		Message: "schema has non-uniform field types; set an explicit type first",
		Fields:  fields,
	}
}

// NewUnsupportedValueError wraps a normalizer failure.
func NewUnsupportedValueError(field string, err error) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedValue,
		Message: err.Error(),
		Field:   field,
		Err:     err,
	}
}
