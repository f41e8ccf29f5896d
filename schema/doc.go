// Package schema defines the descriptors and rows that flow through a
// dataflow pipeline.
//
// A Package is an ordered, name-unique set of Resources. Each Resource
// carries a Schema, an ordered, name-unique set of Fields. Rows are plain
// maps keyed by field name; their order comes from the schema.
//
// Descriptors are mutable until frozen. The flow engine freezes every
// descriptor once the steps are wired, so schema changes always happen before
// the first row of a resource is read. Mutating a frozen descriptor through
// its methods is an errors.ErrCodeSchema error. Freezing does not cover the
// exported descriptor fields (Package.Name, Resource.Name, Path, Metadata and
// the like) or the *Field returned by Schema.At; code holding a frozen
// descriptor must treat those as read-only.
//
// Descriptors encode to JSON with Table Schema and Data Package key names;
// Metadata entries are written as additional top-level keys.
//
// Nothing here is safe for concurrent mutation.
package schema
