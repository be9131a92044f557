package sqlitestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/schema"
	"github.com/patarapolw/tinydb-constraint/internal/value"
)

// createTestDB opens a fresh database in a temp directory.
func createTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		db.Close()
	}

	db, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"documents", "table_schemas"} {
		var name string
		err := db.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	db := createTestDB(t)

	if err := db.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := db.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestTable_RoundTripsNativeTypes(t *testing.T) {
	ctx := context.Background()
	tbl := createTestDB(t).Table("things")

	when := time.Date(2020, 1, 2, 3, 4, 5, 600, time.UTC)
	id, err := tbl.Insert(ctx, docstore.Document{
		"s":    "hello",
		"i":    42,
		"f":    2.0,
		"b":    true,
		"n":    nil,
		"t":    when,
		"d":    value.NewDate(2021, time.March, 4),
		"wide": int64(1) << 60,
	})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	got, err := tbl.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	checks := map[string]any{
		"s":    "hello",
		"i":    int64(42),
		"f":    2.0,
		"b":    true,
		"n":    nil,
		"d":    value.NewDate(2021, time.March, 4),
		"wide": int64(1) << 60,
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("field %q = %#v, want %#v", k, got[k], want)
		}
	}
	if gt, ok := got["t"].(time.Time); !ok || !gt.Equal(when) {
		t.Errorf("field t = %#v, want %v", got["t"], when)
	}
}

func TestTable_RejectsUnsupportedValues(t *testing.T) {
	tbl := createTestDB(t).Table("things")

	_, err := tbl.Insert(context.Background(), docstore.Document{"x": []string{"a"}})
	if err == nil {
		t.Fatal("expected error for slice value")
	}
}

func TestTable_InsertMultipleSharesBatch(t *testing.T) {
	ctx := context.Background()
	tbl := createTestDB(t).Table("things")

	ids, err := tbl.InsertMultiple(ctx, []docstore.Document{{"n": 1}, {"n": 2}})
	if err != nil {
		t.Fatalf("InsertMultiple() failed: %v", err)
	}
	single, err := tbl.Insert(ctx, docstore.Document{"n": 3})
	if err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	b1, _ := tbl.Batch(ctx, ids[0])
	b2, _ := tbl.Batch(ctx, ids[1])
	b3, _ := tbl.Batch(ctx, single)
	if b1 == "" || b1 != b2 {
		t.Errorf("bulk rows should share a batch: %q vs %q", b1, b2)
	}
	if b3 == b1 {
		t.Errorf("separate insert should get a new batch, got %q", b3)
	}
}

func TestTable_AllIsOrderedAndScopedToTable(t *testing.T) {
	ctx := context.Background()
	db := createTestDB(t)
	a := db.Table("a")
	b := db.Table("b")

	for i := 1; i <= 3; i++ {
		if _, err := a.Insert(ctx, docstore.Document{"n": i}); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Insert(ctx, docstore.Document{"m": i}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := a.All(ctx)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Doc["n"] != int64(i+1) {
			t.Errorf("entry %d = %v, want n=%d", i, e.Doc, i+1)
		}
		if i > 0 && e.ID <= entries[i-1].ID {
			t.Errorf("entries not in id order: %v", entries)
		}
	}

	names, err := db.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables() failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Tables() = %v", names)
	}
}

func TestTable_GetNotFound(t *testing.T) {
	_, err := createTestDB(t).Table("a").Get(context.Background(), 99)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTable_Update(t *testing.T) {
	ctx := context.Background()
	tbl := createTestDB(t).Table("people")

	ids, err := tbl.InsertMultiple(ctx, []docstore.Document{
		{"name": "a", "age": 1},
		{"name": "b", "age": 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := tbl.Update(ctx, docstore.Eq("name", "b"), docstore.Merge(docstore.Document{"age": 3}), nil)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if len(updated) != 1 || updated[0] != ids[1] {
		t.Errorf("updated = %v, want [%d]", updated, ids[1])
	}

	got, _ := tbl.Get(ctx, ids[1])
	if got["age"] != int64(3) || got["name"] != "b" {
		t.Errorf("after update: %v", got)
	}
}

func TestTable_UpdateRollsBackOnMutatorError(t *testing.T) {
	ctx := context.Background()
	tbl := createTestDB(t).Table("people")

	if _, err := tbl.InsertMultiple(ctx, []docstore.Document{{"n": 1}, {"n": 2}}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	_, err := tbl.Update(ctx, nil, func(doc docstore.Document) (docstore.Document, error) {
		if doc["n"] == int64(2) {
			return nil, boom
		}
		doc["n"] = 100
		return doc, nil
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	entries, _ := tbl.All(ctx)
	if entries[0].Doc["n"] != int64(1) {
		t.Errorf("first document changed despite rollback: %v", entries[0].Doc)
	}
}

func TestTable_SchemaPersistence(t *testing.T) {
	ctx := context.Background()
	tbl := createTestDB(t).Table("people")

	_, ok, err := tbl.LoadSchema(ctx)
	if err != nil || ok {
		t.Fatalf("LoadSchema() on empty = %v, %v", ok, err)
	}

	cfg := schema.Config{
		"id":   {Types: schema.TypeSpec{value.Integer}, Unique: true},
		"name": {NotNull: true},
		"code": {Types: schema.TypeSpec{value.String, value.Integer}},
	}
	if err := tbl.SaveSchema(ctx, cfg); err != nil {
		t.Fatalf("SaveSchema() failed: %v", err)
	}
	cfg["id"] = schema.FieldSpec{Types: schema.TypeSpec{value.Integer}, Unique: true, NotNull: true}
	if err := tbl.SaveSchema(ctx, cfg); err != nil {
		t.Fatalf("second SaveSchema() failed: %v", err)
	}

	got, ok, err := tbl.LoadSchema(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadSchema() = %v, %v", ok, err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d fields, want 3", len(got))
	}
	if !got["id"].Unique || !got["id"].NotNull {
		t.Errorf("id = %+v", got["id"])
	}
	if !got["name"].NotNull || len(got["name"].Types) != 0 {
		t.Errorf("name = %+v", got["name"])
	}
	if !got["code"].Types.IsList() {
		t.Errorf("code = %+v", got["code"])
	}
}
