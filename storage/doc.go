// Package storage defines the object storage abstraction used to persist
// checkpoints and sink outputs, with pluggable backends:
//
//   - storage/local: local filesystem
//   - storage/s3: Amazon S3 and S3-compatible services (MinIO)
//
// Backends register themselves on import:
//
//	import _ "github.com/kbukum/dataflow/storage/local"
//
//	store, err := storage.New(cfg.Storage, log)
//
// Configuration:
//
//	storage:
//	  provider: "s3"
//	  bucket: "flows"
//	  region: "us-east-1"
package storage
