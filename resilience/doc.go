// Package resilience retries transient failures of storage reads.
//
// Sources wrap every download in Retry so that a flaky object store does not
// abort a run before its first row:
//
//	data, err := resilience.Retry(ctx, cfg, func() ([]byte, error) {
//	    return storage.ReadBytes(ctx, store, "input/orders.csv")
//	})
//
// Errors the engine classifies as permanent (NOT_FOUND, INVALID_INPUT,
// SCHEMA_ERROR, CAST_ERROR) are returned at once.
package resilience
