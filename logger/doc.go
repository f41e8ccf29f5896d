// Package logger provides structured logging for dataflow using zerolog.
//
// It supports console and JSON output, level configuration and
// component-scoped loggers. Flow runs attach their run id to the context so
// that step and checkpoint logs can be correlated.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("flow")
//	log.Info("run finished", logger.Fields(logger.FieldRows, 42))
package logger
