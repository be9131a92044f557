package schemaconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

func peopleConfig() schema.Config {
	return schema.Config{
		"id":    {Types: schema.TypeSpec{value.Integer}, NotNull: true, Unique: true},
		"name":  schema.Field(value.String),
		"code":  {Types: schema.TypeSpec{value.String, value.Integer}, TypeOnly: true},
		"email": {Unique: true},
	}
}

func TestLoadAllFormats(t *testing.T) {
	for _, file := range []string{"people.yaml", "people.json", "people.cue"} {
		t.Run(file, func(t *testing.T) {
			cfg, err := Load(filepath.Join("testdata", file))
			require.NoError(t, err)
			assert.Equal(t, peopleConfig(), cfg)
		})
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte("id = 1"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseYAMLRejectsUnknownType(t *testing.T) {
	_, err := ParseYAML([]byte("age: number\n"))
	assert.Error(t, err)
}

func TestParseJSONAliases(t *testing.T) {
	cfg, err := ParseJSON([]byte(`{"a": "int", "b": "str", "c": "date"}`))
	require.NoError(t, err)
	assert.Equal(t, schema.Config{
		"a": schema.Field(value.Integer),
		"b": schema.Field(value.String),
		"c": schema.Field(value.DateTime),
	}, cfg)
}

func TestParseSnapshotExport(t *testing.T) {
	snap := schema.Snapshot{
		Types:   map[string]schema.TypeSpec{"id": {value.Integer}, "code": {value.String, value.Integer}},
		NotNull: []string{"id"},
		Unique:  []string{"id"},
	}

	cfg, err := ParseYAML(mustYAML(t, snap.Config()))
	require.NoError(t, err)
	assert.Equal(t, snap.Config(), cfg)
}
