// Package checkpoint persists a package (descriptor plus every resource's
// rows) under a name so a later run can resume from it instead of
// recomputing the steps that produced it.
//
// A record lives under <prefix>/<name>/ in a storage.Storage:
//
//	datapackage.json      package descriptor, written last
//	data/0.jsonl          rows of the first resource, one JSON object per line
//	data/1.jsonl          ...
//
// The descriptor marks a complete record: Exists reports true only once it
// has been written.
package checkpoint
