package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupported is returned for raw values outside the closed type set.
var ErrUnsupported = errors.New("unsupported value")

// DefaultElidable is the default set of tokens that mean "field absent".
var DefaultElidable = []string{"", "-"}

// Normalizer converts raw values into canonical typed values.
// The zero value is not usable; use NewNormalizer.
type Normalizer struct {
	coerce bool
	elide  map[string]struct{}
	dates  DateParser
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCoercion turns string-to-typed-value coercion on or off. When off,
// strings are returned untouched: no trimming, no elision, no parsing.
func WithCoercion(on bool) Option {
	return func(n *Normalizer) { n.coerce = on }
}

// WithElidable replaces the elidable token set.
func WithElidable(tokens ...string) Option {
	return func(n *Normalizer) {
		n.elide = make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			n.elide[tok] = struct{}{}
		}
	}
}

// WithDateParser sets the date recognition strategy.
func WithDateParser(p DateParser) Option {
	return func(n *Normalizer) { n.dates = p }
}

// NewNormalizer creates a Normalizer with coercion on, DefaultElidable and
// LenientDates unless overridden.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{coerce: true, dates: LenientDates()}
	WithElidable(DefaultElidable...)(n)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Coercing reports whether string coercion is enabled.
func (n *Normalizer) Coercing() bool { return n.coerce }

// DateMode reports the active date strategy.
func (n *Normalizer) DateMode() string { return n.dates.Mode() }

// Normalize returns the canonical value for raw: int64, float64, string or
// time.Time. ok is false when the value is absent (nil or an elidable token).
func (n *Normalizer) Normalize(raw any) (v any, ok bool, err error) {
	switch val := raw.(type) {
	case nil:
		return nil, false, nil
	case string:
		if !n.coerce {
			return val, true, nil
		}
		return n.coerceString(val)
	case int:
		return int64(val), true, nil
	case int8:
		return int64(val), true, nil
	case int16:
		return int64(val), true, nil
	case int32:
		return int64(val), true, nil
	case int64:
		return val, true, nil
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return int64(val), true, nil
	case uint16:
		return int64(val), true, nil
	case uint32:
		return int64(val), true, nil
	case uint64:
		return uintValue(val)
	case float32:
		return float64(val), true, nil
	case float64:
		return val, true, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, false, fmt.Errorf("%w: number %s", ErrUnsupported, val)
		}
		return f, true, nil
	case time.Time:
		return val, true, nil
	case Date:
		return val.Midnight(), true, nil
	default:
		return nil, false, fmt.Errorf("%w: %T", ErrUnsupported, raw)
	}
}

func uintValue(u uint64) (any, bool, error) {
	if u > math.MaxInt64 {
		return nil, false, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, u)
	}
	return int64(u), true, nil
}

// TypeOf classifies raw. ok is false when the value is absent.
func (n *Normalizer) TypeOf(raw any) (FieldType, bool, error) {
	v, ok, err := n.Normalize(raw)
	if err != nil || !ok {
		return 0, ok, err
	}
	return Classify(v), true, nil
}

// Render is Normalize with DateTime values formatted by FormatISO. The result
// is always an int64, float64 or string, so it is comparable and safe to
// write to a JSON-backed store.
func (n *Normalizer) Render(raw any) (any, bool, error) {
	v, ok, err := n.Normalize(raw)
	if err != nil || !ok {
		return nil, ok, err
	}
	if t, isTime := v.(time.Time); isTime {
		return FormatISO(t), true, nil
	}
	return v, true, nil
}

func (n *Normalizer) coerceString(s string) (any, bool, error) {
	cleaned := Clean(s)

	if isDigits(cleaned) {
		if i, err := strconv.ParseInt(asciiDigits(cleaned), 10, 64); err == nil {
			return i, true, nil
		}
		return cleaned, true, nil
	}
	if isDecimal(cleaned) {
		if f, err := strconv.ParseFloat(asciiDigits(cleaned), 64); err == nil {
			return f, true, nil
		}
	}
	if _, elided := n.elide[cleaned]; elided {
		return nil, false, nil
	}
	if t, ok := n.dates.ParseDate(cleaned); ok {
		return t, true, nil
	}
	return cleaned, true, nil
}

// Clean trims surrounding whitespace, removes control characters (Unicode
// category Cc) and applies NFKD normalization.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	t := transform.Chain(runes.Remove(runes.In(unicode.Cc)), norm.NFKD)
	out, _, err := transform.String(t, s)
	if err != nil {
		return norm.NFKD.String(s)
	}
	return out
}

// isDigits reports a non-empty string of decimal digits in any script
// (Unicode category Nd), e.g. "42" or Arabic-Indic "٤٢".
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// asciiDigits replaces every Nd digit in s with its ASCII equivalent.
func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.IsDigit(r) {
			return r
		}
		return '0' + digitValue(r)
	}, s)
}

// digitValue returns the value of an Nd digit. Nd digits come in contiguous
// runs of ten starting at zero, and the ranges of unicode.Nd are unions of
// such runs.
func digitValue(r rune) rune {
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return (r - lo) / rune(rg.Stride) % 10
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return (r - lo) / rune(rg.Stride) % 10
		}
	}
	return 0
}

// isDecimal reports digits with exactly one '.', e.g. "1.5", "1." or ".5".
func isDecimal(s string) bool {
	dot := strings.IndexByte(s, '.')
	if dot < 0 || strings.Count(s, ".") != 1 {
		return false
	}
	return isDigits(s[:dot] + s[dot+1:])
}

// Classify returns the FieldType of a canonical value produced by Normalize.
func Classify(v any) FieldType {
	switch v.(type) {
	case int64:
		return Integer
	case float64:
		return Float
	case time.Time:
		return DateTime
	default:
		return String
	}
}

// FormatISO renders t as ISO-8601: "2006-01-02T15:04:05", with microseconds
// when non-zero and with the UTC offset when t is not in UTC.
func FormatISO(t time.Time) string {
	layout := "2006-01-02T15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if t.Location() != time.UTC {
		layout += "-07:00"
	}
	return t.Format(layout)
}

// Stringify renders a numeric canonical value as a string, the coercion
// applied when a number is written to a String field.
func Stringify(v any) string {
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return formatFloat(val)
	case string:
		return val
	case time.Time:
		return FormatISO(val)
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat keeps a decimal point on integral values ("2.0") and switches
// to exponent notation outside [1e-4, 1e16).
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if f != 0 && (abs < 1e-4 || abs >= 1e16) || math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
