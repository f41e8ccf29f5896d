// Package steps provides ready-made flow steps for common schema and row
// edits: typing, adding, removing, selecting and renaming fields, filtering
// and sorting rows, and editing or dropping resources.
//
// Steps that edit fields apply to every resource unless restricted with
// Resources. Their schema changes happen when the flow is opened; their row
// changes happen lazily as rows stream past.
package steps
