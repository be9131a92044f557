package value

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateParser decides whether a cleaned string is a date/time.
type DateParser interface {
	// ParseDate returns the parsed time and true, or false if s is not a date.
	ParseDate(s string) (time.Time, bool)
	// Mode names the strategy ("strict" or "lenient").
	Mode() string
}

// Date parsing modes.
const (
	DateModeStrict  = "strict"
	DateModeLenient = "lenient"
)

// StrictLayouts are the only layouts StrictDates accepts. A string without an
// offset is read as UTC.
var StrictLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
}

type strictDates struct{}

// StrictDates accepts ISO-8601 dates and datetimes in StrictLayouts only.
func StrictDates() DateParser { return strictDates{} }

func (strictDates) ParseDate(s string) (time.Time, bool) {
	for _, layout := range StrictLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (strictDates) Mode() string { return DateModeStrict }

type lenientDates struct{}

// LenientDates accepts anything github.com/araddon/dateparse can read:
// ISO-8601, RFC 1123, "Jan 2, 2006", "02/01/2006" (month first), Unix
// timestamps embedded in text and many more. It can misclassify strings
// that only look like dates, such as "May". A string without an offset is read
// as UTC. Parses that leave the year unset ("12:30", "3/4") are rejected.
func LenientDates() DateParser { return lenientDates{} }

func (lenientDates) ParseDate(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || t.Year() == 0 {
		return time.Time{}, false
	}
	return t, true
}

func (lenientDates) Mode() string { return DateModeLenient }

// DateParserFor returns the parser for a mode name. An empty mode selects the
// lenient parser.
func DateParserFor(mode string) (DateParser, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", DateModeLenient:
		return LenientDates(), nil
	case DateModeStrict:
		return StrictDates(), nil
	default:
		return nil, fmt.Errorf("unknown date mode %q: must be %q or %q", mode, DateModeStrict, DateModeLenient)
	}
}
