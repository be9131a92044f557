package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
)

const peopleSchema = `
name: {type: string, not_null: true}
email: {unique: true}
`

func decodeData[T any](t *testing.T, resp CLIResponse) T {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestInsertAndAll(t *testing.T) {
	env := newTestEnv(t, "")

	resp, err := env.runJSON(t, "insert", "people", `{"name": "Ann", "age": "30", "joined": "2024-03-05"}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, WriteResult{Table: "people", IDs: []docstore.DocID{1}}, decodeData[WriteResult](t, resp))

	resp, err = env.runJSON(t, "insert", "people", `[{"name": "Bob", "age": 41}, {"name": "Cy", "age": "52"}]`)
	require.NoError(t, err)
	assert.Equal(t, []docstore.DocID{2, 3}, decodeData[WriteResult](t, resp).IDs)

	resp, err = env.runJSON(t, "all", "people")
	require.NoError(t, err)
	docs := decodeData[[]map[string]any](t, resp)
	require.Len(t, docs, 3)
	first := docs[0]["doc"].(map[string]any)
	assert.Equal(t, "Ann", first["name"])
	assert.EqualValues(t, 30, first["age"])
	assert.Equal(t, "2024-03-05T00:00:00", first["joined"])
}

func TestInsertFromFileAndStdin(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.file(t, "docs.json", `[{"n": 1}, {"n": 2}]`)

	resp, err := env.runJSON(t, "insert", "nums", "@"+path)
	require.NoError(t, err)
	assert.Equal(t, []docstore.DocID{1, 2}, decodeData[WriteResult](t, resp).IDs)

	cmd := NewRootCommand()
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetErr(&strings.Builder{})
	cmd.SetIn(strings.NewReader(`{"n": 3}`))
	cmd.SetArgs([]string{"--config", env.config, "--format", "json", "insert", "nums", "-"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"status": "ok"`)
}

func TestInsertTypeConflict(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.runJSON(t, "insert", "people", `{"age": "30"}`)
	require.NoError(t, err)

	resp, err := env.runJSON(t, "insert", "people", `{"age": "abc"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NON_UNIFORM_TYPE", resp.Error.Code)
	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, "age", details["field"])
	assert.Equal(t, "string", details["type"])
}

func TestInsertBadJSON(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed", `{"a": `, "invalid JSON"},
		{"scalar", `42`, "expected object or array of objects"},
		{"array of scalars", `[1]`, "document 0: expected object"},
		{"trailing data", `{"a": 1} {"b": 2}`, "trailing data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.runJSON(t, "insert", "people", tt.input)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeBadInput, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.want)
		})
	}
}

func TestInsertUnsupportedValue(t *testing.T) {
	env := newTestEnv(t, "")

	resp, err := env.runJSON(t, "insert", "people", `{"tags": ["a", "b"]}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "UNSUPPORTED_VALUE", resp.Error.Code)
}

func TestSchemaSetPersistsAcrossCommands(t *testing.T) {
	env := newTestEnv(t, "")
	schemaFile := env.file(t, "people.yaml", peopleSchema)

	resp, err := env.runJSON(t, "schema", "set", "people", schemaFile)
	require.NoError(t, err)
	snap := decodeData[map[string]any](t, resp)
	assert.Equal(t, []any{"name"}, snap["not_null"])
	assert.Equal(t, []any{"email"}, snap["unique"])

	_, err = env.runJSON(t, "insert", "people", `{"name": "Ann", "email": "ann@x"}`)
	require.NoError(t, err)

	resp, err = env.runJSON(t, "insert", "people", `{"name": "Bob", "email": "ann@x"}`)
	require.Error(t, err)
	assert.Equal(t, "NOT_UNIQUE", resp.Error.Code)

	resp, err = env.runJSON(t, "insert", "people", `{"email": "cy@x"}`)
	require.Error(t, err)
	assert.Equal(t, "NOT_NULL", resp.Error.Code)
}

func TestSchemaLearnedTypesPersist(t *testing.T) {
	env := newTestEnv(t, "")

	// "5" is stored as a string on a String field. A fresh scan would read
	// it as an integer first; the saved schema keeps code a String.
	_, err := env.runJSON(t, "insert", "codes", `{"code": "AB1"}`)
	require.NoError(t, err)
	_, err = env.runJSON(t, "insert", "codes", `{"code": 5}`)
	require.NoError(t, err)

	resp, err := env.runJSON(t, "schema", "show", "codes", "--live")
	require.NoError(t, err)
	snap := decodeData[map[string]any](t, resp)
	assert.Equal(t, map[string]any{"code": "string"}, snap["types"])

	resp, err = env.runJSON(t, "schema", "show", "codes")
	require.NoError(t, err)
	snap = decodeData[map[string]any](t, resp)
	assert.Equal(t, map[string]any{"code": []any{"string", "integer"}}, snap["types"])
}

func TestSchemaUpdateKeepsLearnedTypes(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.runJSON(t, "insert", "people", `{"name": "Ann", "age": 30}`)
	require.NoError(t, err)

	update := env.file(t, "flags.json", `{"name": {"not_null": true}}`)
	resp, err := env.runJSON(t, "schema", "update", "people", update)
	require.NoError(t, err)
	snap := decodeData[map[string]any](t, resp)
	assert.Equal(t, map[string]any{"name": "string", "age": "integer"}, snap["types"])
	assert.Equal(t, []any{"name"}, snap["not_null"])
}

func TestSchemaShowInspectLeavesLiveSchema(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.runJSON(t, "insert", "people", `{"name": "Ann"}`)
	require.NoError(t, err)

	resp, err := env.runJSON(t, "schema", "show", "people", "--inspect")
	require.NoError(t, err)
	snap := decodeData[map[string]any](t, resp)
	assert.Equal(t, map[string]any{"name": "string"}, snap["types"])

	_, err = env.run(t, "schema", "show", "people", "--inspect", "--live")
	require.Error(t, err)
}

func TestSchemaShowGolden(t *testing.T) {
	env := newTestEnv(t, "")
	schemaFile := env.file(t, "people.yaml", peopleSchema)

	_, err := env.run(t, "schema", "set", "people", schemaFile)
	require.NoError(t, err)
	_, err = env.run(t, "insert", "people", `[{"name": "Ann", "age": 30}, {"name": "Bob", "age": "41", "email": "bob@x"}]`)
	require.NoError(t, err)

	out, err := env.run(t, "--format", "json", "schema", "show", "people")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "schema_show", []byte(out))
}

func TestSchemaSetBadFile(t *testing.T) {
	env := newTestEnv(t, "")
	bad := env.file(t, "bad.toml", "x = 1")

	resp, err := env.runJSON(t, "schema", "set", "people", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeBadInput, resp.Error.Code)
}

func TestUpdateWithMatch(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.runJSON(t, "insert", "people", `[{"email": "a@x", "age": 1}, {"email": "b@x", "age": 2}]`)
	require.NoError(t, err)

	resp, err := env.runJSON(t, "update", "people", `{"email": "b@x", "age": 20}`, "--match", "email")
	require.NoError(t, err)
	assert.Equal(t, []docstore.DocID{2}, decodeData[WriteResult](t, resp).IDs)

	resp, err = env.runJSON(t, "update", "people", `{"age": 10}`, "--id", "1")
	require.NoError(t, err)
	assert.Equal(t, []docstore.DocID{1}, decodeData[WriteResult](t, resp).IDs)

	resp, err = env.runJSON(t, "update", "people", `{"age": "x"}`, "--id", "1")
	require.Error(t, err)
	assert.Equal(t, "NON_UNIFORM_TYPE", resp.Error.Code)

	resp, err = env.runJSON(t, "update", "people", `{"age": 3}`, "--match", "email")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, resp.Error.Message, `match field "email" not in payload`)

	resp, err = env.runJSON(t, "update", "people", `[{"age": 3}]`)
	require.Error(t, err)
	assert.Equal(t, ErrCodeBadInput, resp.Error.Code)

	resp, err = env.runJSON(t, "all", "people")
	require.NoError(t, err)
	docs := decodeData[[]map[string]any](t, resp)
	assert.EqualValues(t, 10, docs[0]["doc"].(map[string]any)["age"])
	assert.EqualValues(t, 20, docs[1]["doc"].(map[string]any)["age"])
}

func TestUpdateRejectsBadID(t *testing.T) {
	env := newTestEnv(t, "")

	resp, err := env.runJSON(t, "update", "people", `{"age": 3}`, "--id", "0")
	require.Error(t, err)
	assert.Equal(t, ErrCodeBadInput, resp.Error.Code)
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, "")
	raw := env.file(t, "raw.yaml",
		"database:\n  path: "+env.db+"\nengine:\n  sanitize: false\nlogging:\n  level: error\n")

	_, err := env.runWithConfig(t, raw, "insert", "people", `[{"id": 1}, {"id": 1}]`)
	require.NoError(t, err)
	_, err = env.runWithConfig(t, raw, "insert", "other", `{"id": 1}`)
	require.NoError(t, err)

	resp, err := env.runJSON(t, "validate")
	require.NoError(t, err)
	result := decodeData[ValidationResult](t, resp)
	assert.True(t, result.Valid)
	assert.Len(t, result.Tables, 2)

	unique := env.file(t, "unique.yaml", "id: {unique: true}\n")
	_, err = env.run(t, "schema", "update", "people", unique)
	require.NoError(t, err)

	resp, err = env.runJSON(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	result = decodeData[ValidationResult](t, resp)
	assert.False(t, result.Valid)
	require.Len(t, result.Tables, 2)
	assert.Equal(t, TableValidation{Table: "other", Valid: true}, result.Tables[0])
	assert.Equal(t, "people", result.Tables[1].Table)
	assert.Equal(t, "NOT_UNIQUE", result.Tables[1].Code)

	resp, err = env.runJSON(t, "validate", "other")
	require.NoError(t, err)
	assert.Len(t, decodeData[ValidationResult](t, resp).Tables, 1)
}

func TestConfigTableSchema(t *testing.T) {
	env := newTestEnv(t, "")
	schemaFile := env.file(t, "people.cue", `
#Key: {type: "integer", not_null: true, unique: true}
id: #Key
`)
	cfg := filepath.Join(env.dir, "with-schema.yaml")
	env.writeConfig(t, cfg, "tables:\n  people:\n    schema: "+schemaFile+"\n")

	_, err := env.runWithConfig(t, cfg, "insert", "people", `{"id": "7"}`)
	require.NoError(t, err)

	_, err = env.runWithConfig(t, cfg, "insert", "people", `{"name": "x"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = env.runWithConfig(t, cfg, "insert", "people", `{"id": 7}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestMetricsTextfile(t *testing.T) {
	env := newTestEnv(t, "")
	metricsFile := filepath.Join(env.dir, "tinydbc.prom")
	cfg := filepath.Join(env.dir, "metrics.yaml")
	env.writeConfig(t, cfg, "metrics:\n  file: "+metricsFile+"\n")

	_, err := env.runWithConfig(t, cfg, "insert", "people", `[{"age": 1}, {"age": 2}]`)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tinydbc_documents_written_total{op="insert_multiple",table="people"} 2`)
	assert.Contains(t, string(data), `tinydbc_refreshes_total{mode="advance",table="people"} 2`)
}

func TestTextOutput(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run(t, "insert", "people", `{"name": "Ann"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "table: people")

	out, err = env.run(t, "insert", "people", `{"name": 5}`)
	require.NoError(t, err)
	assert.Contains(t, out, "- 2")

	out, err = env.run(t, "all", "people")
	require.NoError(t, err)
	assert.Contains(t, out, "name: \"5\"")

	out, err = env.run(t, "insert", "people", `{"name": "-", "age": "x"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "- 3")

	out, err = env.run(t, "schema", "set", "people", env.file(t, "s.yaml", "age: integer\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "age: integer")

	out, err = env.run(t, "insert", "people", `{"age": "x"}`)
	require.Error(t, err)
	assert.Contains(t, out, "Error [NON_UNIFORM_TYPE]")
}
