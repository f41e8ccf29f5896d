// Package cast converts raw values to the native Go values their field type
// declares and checks field constraints.
//
// Native values per type:
//
//	integer, year         int64
//	number                decimal.Decimal
//	boolean               bool
//	date, datetime, time  time.Time
//	array                 []any
//	object                map[string]any
//	geopoint              schema.GeoPoint
//	string                string
//	any                   unchanged
//
// Missing values cast to nil. Failures are errors.ErrCodeCast errors naming
// the field, the value and the violated constraint ("type", "format",
// "required", "enum", "pattern", "minimum", "maximum", "minLength",
// "maxLength").
//
// Casting is deterministic: equal inputs under equal options and field
// descriptors always give equal results.
//
// Serialize and Restore move values to and from a storage-neutral form
// (ISO temporal text, decimal text, "lon,lat" points), used by checkpoints
// and sinks.
package cast
