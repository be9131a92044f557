package docstore

import (
	"context"
	"fmt"
	"slices"
)

// MemoryStore is an in-memory Store. Documents are copied on the way in and
// out, so callers cannot alias stored state.
type MemoryStore struct {
	nextID DocID
	docs   map[DocID]Document
	order  []DocID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, docs: make(map[DocID]Document)}
}

var _ Store = (*MemoryStore)(nil)

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, doc Document) (DocID, error) {
	id := m.nextID
	m.nextID++
	m.docs[id] = doc.Clone()
	m.order = append(m.order, id)
	return id, nil
}

// InsertMultiple implements Store.
func (m *MemoryStore) InsertMultiple(ctx context.Context, docs []Document) ([]DocID, error) {
	ids := make([]DocID, 0, len(docs))
	for _, doc := range docs {
		id, err := m.Insert(ctx, doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// All implements Store.
func (m *MemoryStore) All(_ context.Context) ([]Entry, error) {
	entries := make([]Entry, 0, len(m.order))
	for _, id := range m.order {
		entries = append(entries, Entry{ID: id, Doc: m.docs[id].Clone()})
	}
	return entries, nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id DocID) (Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	return doc.Clone(), nil
}

// Update implements Store. Replacements are computed for every match first
// and written only if all of them succeed.
func (m *MemoryStore) Update(_ context.Context, where Predicate, mutate Mutator, ids []DocID) ([]DocID, error) {
	updates := make(map[DocID]Document)
	var updated []DocID
	for _, id := range m.order {
		if len(ids) > 0 && !slices.Contains(ids, id) {
			continue
		}
		doc := m.docs[id]
		if !Matches(where, doc) {
			continue
		}
		next, err := mutate(doc.Clone())
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", id, err)
		}
		updates[id] = next.Clone()
		updated = append(updated, id)
	}
	for id, doc := range updates {
		m.docs[id] = doc
	}
	return updated, nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int { return len(m.order) }
