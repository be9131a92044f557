package value

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStrings(t *testing.T) {
	n := NewNormalizer(WithDateParser(StrictDates()))

	tests := []struct {
		name   string
		raw    string
		want   any
		absent bool
	}{
		{name: "integer", raw: "30", want: int64(30)},
		{name: "integer with padding", raw: "  42\t", want: int64(42)},
		{name: "full width digits", raw: "１２", want: int64(12)},
		{name: "arabic-indic digits", raw: "٣٤", want: int64(34)},
		{name: "devanagari digits", raw: "१०७", want: int64(107)},
		{name: "mathematical digits", raw: "𝟗𝟖", want: int64(98)},
		{name: "arabic-indic float", raw: "٣.٥", want: 3.5},
		{name: "float", raw: "1.5", want: 1.5},
		{name: "float trailing dot", raw: "3.", want: 3.0},
		{name: "float leading dot", raw: ".25", want: 0.25},
		{name: "two dots stays string", raw: "1.2.3", want: "1.2.3"},
		{name: "empty is absent", raw: "", absent: true},
		{name: "whitespace is absent", raw: "   ", absent: true},
		{name: "dash is absent", raw: "-", absent: true},
		{name: "padded dash is absent", raw: " - ", absent: true},
		{name: "plain string", raw: "abc", want: "abc"},
		{name: "control chars stripped", raw: "a\x00b\x07c", want: "abc"},
		{name: "signed number stays string", raw: "-5", want: "-5"},
		{name: "overflow stays string", raw: "99999999999999999999", want: "99999999999999999999"},
		{name: "date", raw: "2020-01-01", want: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "datetime", raw: "2020-01-01T10:30:00", want: time.Date(2020, 1, 1, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			if tt.absent {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeNonStrings(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name string
		raw  any
		want any
	}{
		{name: "int", raw: 5, want: int64(5)},
		{name: "int32", raw: int32(-7), want: int64(-7)},
		{name: "uint8", raw: uint8(9), want: int64(9)},
		{name: "float32", raw: float32(0.5), want: 0.5},
		{name: "json integer", raw: json.Number("12"), want: int64(12)},
		{name: "json float", raw: json.Number("1.25"), want: 1.25},
		{name: "time", raw: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), want: time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{name: "date becomes midnight", raw: NewDate(2020, time.January, 1), want: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeNilIsAbsent(t *testing.T) {
	_, ok, err := NewNormalizer().Normalize(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNormalizeUnsupported(t *testing.T) {
	_, _, err := NewNormalizer().Normalize(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "bool")

	_, _, err = NewNormalizer().Normalize(uint64(1 << 63))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCoercionDisabled(t *testing.T) {
	n := NewNormalizer(WithCoercion(false))

	for _, raw := range []string{" 30 ", "", "-", "2020-01-01"} {
		got, ok, err := n.Normalize(raw)
		require.NoError(t, err)
		require.True(t, ok, "raw %q", raw)
		assert.Equal(t, raw, got)
	}

	// Non-strings are still normalized.
	got, _, err := n.Normalize(NewDate(2020, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestCustomElidableTokens(t *testing.T) {
	n := NewNormalizer(WithElidable("N/A", "null"))

	_, ok, err := n.Normalize("N/A")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := n.Normalize("-")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "-", got)
}

func TestTypeOf(t *testing.T) {
	n := NewNormalizer(WithDateParser(StrictDates()))

	tests := []struct {
		raw  any
		want FieldType
	}{
		{"30", Integer},
		{"1.5", Float},
		{"abc", String},
		{"2020-01-01", DateTime},
		{7, Integer},
		{2.5, Float},
		{NewDate(2020, 1, 1), DateTime},
	}
	for _, tt := range tests {
		got, ok, err := n.TypeOf(tt.raw)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, tt.want, got, "raw %v", tt.raw)
	}
}

func TestRenderDateTime(t *testing.T) {
	n := NewNormalizer()

	got, ok, err := n.Render("2020-01-01")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2020-01-01T00:00:00", got)

	got, _, err = n.Render(time.Date(2020, 1, 1, 1, 2, 3, 500000000, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T01:02:03.500000", got)

	got, _, err = n.Render(time.Date(2020, 1, 1, 1, 2, 3, 0, time.FixedZone("", 5*3600)))
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T01:02:03+05:00", got)
}

func TestRenderedDateTimeRoundTrips(t *testing.T) {
	for _, n := range []*Normalizer{
		NewNormalizer(WithDateParser(StrictDates())),
		NewNormalizer(WithDateParser(LenientDates())),
	} {
		rendered, _, err := n.Render("2020-01-01")
		require.NoError(t, err)

		typ, ok, err := n.TypeOf(rendered)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, DateTime, typ, "mode %s", n.DateMode())

		again, _, err := n.Render(rendered)
		require.NoError(t, err)
		assert.Equal(t, rendered, again)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "5", Stringify(int64(5)))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "2.0", Stringify(2.0))
	assert.Equal(t, "1e+16", Stringify(1e16))
	assert.Equal(t, "1.5e-05", Stringify(0.000015))
	assert.Equal(t, "x", Stringify("x"))
}

func TestFieldsSkipsAbsentAndSorts(t *testing.T) {
	n := NewNormalizer(WithDateParser(StrictDates()))

	fields, err := n.Fields(map[string]any{
		"name":  "bob",
		"age":   "30",
		"note":  "-",
		"since": "2020-01-01",
	})
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, Field{Name: "age", Type: Integer, Value: int64(30)}, fields[0])
	assert.Equal(t, Field{Name: "name", Type: String, Value: "bob"}, fields[1])
	assert.Equal(t, Field{Name: "since", Type: DateTime, Value: "2020-01-01T00:00:00"}, fields[2])
}

func TestFieldsReportsFieldName(t *testing.T) {
	_, err := NewNormalizer().Fields(map[string]any{"flag": true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "flag"`)
}

func TestFieldsErrorCarriesField(t *testing.T) {
	_, err := NewNormalizer().Fields(map[string]any{"ok": "x", "flag": true})

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "flag", fe.Field)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestJSONify(t *testing.T) {
	when := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	out := JSONify(map[string]any{
		"t": when,
		"d": NewDate(2021, time.March, 4),
		"s": " 12 ",
		"n": int64(3),
	})

	assert.Equal(t, map[string]any{
		"t": "2020-01-02T03:04:05",
		"d": "2021-03-04T00:00:00",
		"s": " 12 ",
		"n": int64(3),
	}, out)
}
