// Package config loads dataflow configuration from YAML files, .env files and
// environment variables.
//
// Files are located by flow name (see Resolver), read with Viper, and
// environment variables override file values. Variables may carry a prefix,
// DATAFLOW_ by default, with underscores standing for nesting:
//
//	DATAFLOW_STORAGE_PROVIDER=s3  ->  storage.provider
//
// # Usage
//
//	cfg, err := config.Load("orders-nightly")
//	if err != nil { ... }
//	logger.Init(cfg.Logging)
//
// Load applies defaults and validates every section. LoadConfig fills an
// arbitrary struct for callers embedding Config in their own type.
package config
