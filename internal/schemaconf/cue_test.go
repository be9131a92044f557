package schemaconf

import (
	"errors"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

func mustYAML(t *testing.T, v any) []byte {
	t.Helper()
	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestCompileCUEComputedFields(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		_key: "integer"
		id: {type: _key, unique: true}
		created: "datetime"
	`)

	cfg, err := CompileCUE(v)
	require.NoError(t, err)
	assert.Equal(t, schema.Config{
		"id":      {Types: schema.TypeSpec{value.Integer}, Unique: true},
		"created": schema.Field(value.DateTime),
	}, cfg)
}

func TestCompileCUEUnknownDescriptorKey(t *testing.T) {
	_, err := ParseCUE("bad.cue", []byte(`id: {type: "integer", primary: true}`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "id.primary", ce.Field)
	assert.True(t, ce.Pos.IsValid())
}

func TestCompileCUEInvalidTag(t *testing.T) {
	_, err := ParseCUE("bad.cue", []byte(`age: "number"`))

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "age", ce.Field)
}

func TestCompileCUEWrongKind(t *testing.T) {
	_, err := ParseCUE("bad.cue", []byte(`age: 3`))

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "age", ce.Field)
	assert.Contains(t, ce.Error(), "bad.cue:1:")
}

func TestCompileCUESyntaxError(t *testing.T) {
	_, err := ParseCUE("broken.cue", []byte(`id: {type: `))
	require.Error(t, err)

	var ce *CompileError
	if errors.As(err, &ce) {
		assert.Equal(t, "cue", ce.Field)
	}
}

func TestCompileCUEIncompleteValue(t *testing.T) {
	_, err := ParseCUE("open.cue", []byte(`id: {type: string}`))
	assert.Error(t, err)
}
