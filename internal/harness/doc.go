// Package harness runs constraint scenarios as executable contract tests.
//
// A scenario creates one constraint.Table, applies an optional initial
// schema, executes a sequence of writes and schema changes, and checks the
// outcome of each step and the final state of the table.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	options:
//	  date_mode: strict
//	  store: sqlite
//	schema:
//	  id: {type: integer, not_null: true, unique: true}
//	steps:
//	  - insert: {id: 1, age: "30"}
//	  - insert: {id: 1}
//	    expect: NOT_UNIQUE
//	  - update:
//	      set: {id: 1, age: 31}
//	      match: [id]
//	assertions:
//	  - type: schema
//	    field: age
//	    expect: integer
//	  - type: documents
//	    count: 1
//
// Each step holds exactly one operation: insert, insert_many, update,
// set_schema, update_schema or refresh. expect names the constraint error
// code the step must fail with; an empty expect means the step must succeed.
//
// # Assertion Types
//
//   - schema: the observed type of a field, and optionally its not_null and
//     unique flags
//   - live_schema: the same against the live schema, without scanning
//   - documents: the number of stored documents and documents that must be
//     present (subset match on fields)
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store, so IDs start at 1 and
// the snapshot written by RunWithGolden is identical across runs.
package harness
