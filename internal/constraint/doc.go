// Package constraint enforces an inferred schema over a schemaless
// document store.
//
// A Table wraps a docstore.Store. Every write goes through the sanitizer,
// which classifies each field with a value.Normalizer, learns the types of
// unseen fields, widens numbers written to String fields, and rejects type
// conflicts, missing not-null fields and duplicate values of unique fields
// before anything reaches the store.
//
// SANITIZE PIPELINE:
//
//  1. refresh: full scan of the table against the live schema
//  2. sanitize the batch: types, widening, not-null, uniqueness
//  3. write the sanitized batch to the store
//  4. refresh again, merging the written values into the uniqueness index
//
// Every write is therefore O(table size). WithSanitize(false) turns the whole
// pipeline off and stores records as given.
//
// UNIQUENESS INDEX:
//
// Uniqueness is opt-in per field through the schema configuration. The index
// holds every distinct value accepted since the last SetSchema and only
// grows. A refresh merges every scanned value into it, so Schema and
// GetSchema(ctx, true) are mutating reads. A refresh that fails partway
// leaves the values merged so far in place. Inspect scans a copy of the
// schema and never mutates it.
//
// A Table is not safe for concurrent use. Callers serialize access.
package constraint
