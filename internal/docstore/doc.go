// Package docstore defines the document store contract the constraint
// engine is layered on, plus an in-memory implementation.
//
// A store keeps schemaless documents (field -> value maps) under
// monotonically increasing DocIDs. All must return documents in identifier
// order; the constraint engine relies on that for deterministic scans.
// Selection for updates is expressed as a Predicate, and the change itself
// as a Mutator, so matching and writing stay inside the store.
package docstore
