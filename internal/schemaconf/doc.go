// Package schemaconf loads table schema configuration files.
//
// A configuration maps field names to a bare type tag, a list of tags or a
// descriptor {type, not_null, unique}. The same shapes are accepted in YAML
// (.yaml, .yml), JSON (.json) and CUE (.cue):
//
//	id:    {type: "integer", not_null: true, unique: true}
//	name:  "string"
//	code:  ["string", "integer"]
//
// CUE files are evaluated first, so fields may be computed or constrained
// as long as every value is concrete.
package schemaconf
