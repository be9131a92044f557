package docstore

import (
	"context"
	"errors"
	"maps"
)

// ErrNotFound is returned by Get for an unknown DocID.
var ErrNotFound = errors.New("document not found")

// DocID identifies a stored document. IDs are positive and only increase.
type DocID int64

// Document is a schemaless record.
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return maps.Clone(d)
}

// Entry is a stored document with its ID.
type Entry struct {
	ID  DocID
	Doc Document
}

// Mutator turns a stored document into its replacement.
// Returning an error aborts the update.
type Mutator func(doc Document) (Document, error)

// Merge returns a Mutator that overlays fields onto each document.
func Merge(fields Document) Mutator {
	return func(doc Document) (Document, error) {
		out := doc.Clone()
		maps.Copy(out, fields)
		return out, nil
	}
}

// Store is the document store collaborator.
type Store interface {
	// Insert stores doc and returns its new ID.
	Insert(ctx context.Context, doc Document) (DocID, error)

	// InsertMultiple stores docs in order and returns their IDs.
	InsertMultiple(ctx context.Context, docs []Document) ([]DocID, error)

	// All returns every document in ID order.
	All(ctx context.Context) ([]Entry, error)

	// Get returns one document, or ErrNotFound.
	Get(ctx context.Context, id DocID) (Document, error)

	// Update applies mutate to every document matching where. A nil where
	// matches everything. A non-empty ids restricts the candidates to those
	// IDs. Returns the updated IDs in ID order.
	Update(ctx context.Context, where Predicate, mutate Mutator, ids []DocID) ([]DocID, error)
}
