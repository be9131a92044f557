package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/patarapolw/tinydb-constraint/internal/docstore"
	"github.com/patarapolw/tinydb-constraint/internal/schema"
)

// Table is one named document table. It implements docstore.Store.
type Table struct {
	db   *sql.DB
	name string
}

var _ docstore.Store = (*Table)(nil)

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// newBatch returns a time-sortable batch token.
func newBatch() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Insert implements docstore.Store.
func (t *Table) Insert(ctx context.Context, doc docstore.Document) (docstore.DocID, error) {
	ids, err := t.insert(ctx, []docstore.Document{doc})
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return ids[0], nil
}

// InsertMultiple implements docstore.Store. All rows are written in one
// transaction and share a batch token.
func (t *Table) InsertMultiple(ctx context.Context, docs []docstore.Document) ([]docstore.DocID, error) {
	ids, err := t.insert(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("insert multiple: %w", err)
	}
	return ids, nil
}

func (t *Table) insert(ctx context.Context, docs []docstore.Document) ([]docstore.DocID, error) {
	bodies := make([]string, len(docs))
	for i, doc := range docs {
		body, err := marshalDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		bodies[i] = body
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	batch := newBatch()
	ids := make([]docstore.DocID, 0, len(docs))
	for _, body := range bodies {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO documents (tbl, body, batch)
			VALUES (?, ?, ?)
		`, t.name, body, batch)
		if err != nil {
			return nil, err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, docstore.DocID(id))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

// All implements docstore.Store.
func (t *Table) All(ctx context.Context) ([]docstore.Entry, error) {
	entries, err := readEntries(ctx, t.db, t.name)
	if err != nil {
		return nil, fmt.Errorf("read all: %w", err)
	}
	return entries, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readEntries(ctx context.Context, q queryer, name string) ([]docstore.Entry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, body FROM documents
		WHERE tbl = ?
		ORDER BY id ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	entries := []docstore.Entry{}
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := unmarshalDocument(body)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", id, err)
		}
		entries = append(entries, docstore.Entry{ID: docstore.DocID(id), Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return entries, nil
}

// Get implements docstore.Store.
func (t *Table) Get(ctx context.Context, id docstore.DocID) (docstore.Document, error) {
	var body string
	err := t.db.QueryRowContext(ctx, `
		SELECT body FROM documents WHERE tbl = ? AND id = ?
	`, t.name, int64(id)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %d: %w", id, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %d: %w", id, err)
	}
	return unmarshalDocument(body)
}

// Batch returns the batch token a document was written with.
func (t *Table) Batch(ctx context.Context, id docstore.DocID) (string, error) {
	var batch string
	err := t.db.QueryRowContext(ctx, `
		SELECT batch FROM documents WHERE tbl = ? AND id = ?
	`, t.name, int64(id)).Scan(&batch)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("batch %d: %w", id, docstore.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("batch %d: %w", id, err)
	}
	return batch, nil
}

// Update implements docstore.Store. Matching, mutation and writes happen in
// one transaction; a Mutator error rolls the whole update back.
func (t *Table) Update(ctx context.Context, where docstore.Predicate, mutate docstore.Mutator, ids []docstore.DocID) ([]docstore.DocID, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update: begin tx: %w", err)
	}
	defer tx.Rollback()

	entries, err := readEntries(ctx, tx, t.name)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	var updated []docstore.DocID
	for _, e := range entries {
		if len(ids) > 0 && !slices.Contains(ids, e.ID) {
			continue
		}
		if !docstore.Matches(where, e.Doc) {
			continue
		}
		next, err := mutate(e.Doc)
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", e.ID, err)
		}
		body, err := marshalDocument(next)
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET body = ? WHERE id = ?
		`, body, int64(e.ID)); err != nil {
			return nil, fmt.Errorf("update %d: %w", e.ID, err)
		}
		updated = append(updated, e.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update: commit: %w", err)
	}
	return updated, nil
}

// LoadSchema returns the stored schema configuration of the table.
// ok is false when none was saved.
func (t *Table) LoadSchema(ctx context.Context) (cfg schema.Config, ok bool, err error) {
	var data string
	err = t.db.QueryRowContext(ctx, `
		SELECT config FROM table_schemas WHERE tbl = ?
	`, t.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load schema: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, false, fmt.Errorf("load schema: %w", err)
	}
	return cfg, true, nil
}

// SaveSchema stores the schema configuration of the table, replacing any
// previous one.
func (t *Table) SaveSchema(ctx context.Context, cfg schema.Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("save schema: %w", err)
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO table_schemas (tbl, config) VALUES (?, ?)
		ON CONFLICT(tbl) DO UPDATE SET config = excluded.config
	`, t.name, string(data))
	if err != nil {
		return fmt.Errorf("save schema: %w", err)
	}
	return nil
}
