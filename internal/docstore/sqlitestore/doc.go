// Package sqlitestore is a docstore.Store backed by SQLite.
//
// One database file holds any number of named tables. Each document is a
// row whose body is a JSON object of tagged values, so that integers,
// floats, strings, dates and datetimes read back with their native Go types
// (a plain JSON round trip would turn 1.0 into 1 and times into strings).
//
// Every Insert or InsertMultiple call stamps its rows with a UUIDv7 batch
// token, which makes bulk loads traceable after the fact.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The store does no locking of its own beyond SQLite's; callers serialize
// writes per table.
package sqlitestore
