// Package errors provides the structured error type shared by every dataflow
// package. An AppError carries a machine-readable code, a message, free-form
// details (field, value, step position, resource, row) and an optional cause.
package errors
