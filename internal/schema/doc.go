// Package schema holds the per-table schema state: the expected type of each
// field, the not-null field set and the uniqueness index.
//
// A Model is plain data. It never reads documents and never decides whether
// a conflict is an error; the constraint package does both. Types are kept
// as a TypeSpec so that a field can be in "list form" (several observed
// types). List form only enters a Model through Apply, for example when an
// exported refresh snapshot is loaded back as configuration, and marks the
// field as needing repair.
//
// Uniqueness is opt-in. A field is tracked only once it is configured
// unique, and its set of accepted values then grows until Reset.
package schema
