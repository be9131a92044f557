package value

import (
	"fmt"
	"strings"
	"time"
)

// FieldType is the closed set of types a document field can be inferred as.
type FieldType int

const (
	// Integer values are stored as int64.
	Integer FieldType = iota + 1
	// Float values are stored as float64.
	Float
	// String values are stored as string.
	String
	// DateTime values are time.Time in memory and ISO-8601 strings on disk.
	DateTime
)

// FieldTypes lists every FieldType in declaration order.
var FieldTypes = []FieldType{Integer, Float, String, DateTime}

// String returns the lower-case tag name used in schema configuration.
func (t FieldType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case DateTime:
		return "datetime"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared tags.
func (t FieldType) Valid() bool {
	return t >= Integer && t <= DateTime
}

// Numeric reports whether t may be widened to String.
func (t FieldType) Numeric() bool {
	return t == Integer || t == Float
}

// ParseFieldType parses a tag name. Accepted spellings are the canonical
// names plus the short aliases "int", "str" and "date".
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int":
		return Integer, nil
	case "float":
		return Float, nil
	case "string", "str":
		return String, nil
	case "datetime", "date":
		return DateTime, nil
	default:
		return 0, fmt.Errorf("unknown field type %q: must be one of integer, float, string, datetime", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid field type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Date is a calendar date without a time of day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// Midnight combines the date with 00:00:00 UTC.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
