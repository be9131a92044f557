// Package value classifies and normalizes raw document field values.
//
// Every raw value is reduced to one of four canonical Go types, each tagged
// by a FieldType:
//
//	Integer  -> int64
//	Float    -> float64
//	String   -> string
//	DateTime -> time.Time
//
// Strings are the interesting case. With coercion enabled (the default) a
// string is trimmed, stripped of control characters and NFKD-normalized, then
// classified in this order:
//
//  1. ASCII digits only                     -> Integer
//  2. ASCII digits with exactly one "."     -> Float
//  3. member of the elidable token set      -> absent (field dropped)
//  4. accepted by the DateParser            -> DateTime
//  5. anything else                         -> String
//
// Date-only values (Date) are promoted to a DateTime at midnight UTC so that
// temporal fields have a single type. The "value view" renders DateTime as
// an ISO-8601 string, which is what gets written to a document store.
package value
