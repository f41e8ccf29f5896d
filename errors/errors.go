package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Detail keys used by the engine when it annotates an error with its location.
const (
	DetailStep       = "step"
	DetailStepKind   = "step_kind"
	DetailResource   = "resource"
	DetailRow        = "row"
	DetailField      = "field"
	DetailValue      = "value"
	DetailConstraint = "constraint"
)

// AppError is the unified dataflow error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error, including the step
// position, resource and row when they are known.
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if loc := e.location(); loc != "" {
		b.WriteString(" [")
		b.WriteString(loc)
		b.WriteString("]")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

func (e *AppError) location() string {
	var parts []string
	if step, ok := e.Details[DetailStep]; ok {
		if kind, ok := e.Details[DetailStepKind]; ok {
			parts = append(parts, fmt.Sprintf("step %v (%v)", step, kind))
		} else {
			parts = append(parts, fmt.Sprintf("step %v", step))
		}
	}
	if res, ok := e.Details[DetailResource]; ok {
		parts = append(parts, fmt.Sprintf("resource %v", res))
	}
	if row, ok := e.Details[DetailRow]; ok {
		parts = append(parts, fmt.Sprintf("row %v", row))
	}
	return strings.Join(parts, ", ")
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another AppError by code, so errors.Is(err, &AppError{Code: c})
// works as a code check.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Detail returns a detail value by key.
func (e *AppError) Detail(key string) (any, bool) {
	v, ok := e.Details[key]
	return v, ok
}

// HasStep reports whether the error was already attributed to a step.
func (e *AppError) HasStep() bool {
	_, ok := e.Details[DetailStep]
	return ok
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err (or any error it wraps) is an AppError with code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// --- Constructors ---

// StepSignature creates a StepSignatureError for the step at position.
func StepSignature(position int, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeStepSignature,
		Message: fmt.Sprintf("cannot classify step: %s", reason),
		Details: map[string]any{DetailStep: position},
	}
}

// Cast creates a CastError for a value that fails constraint on field.
func Cast(field string, value any, constraint string) *AppError {
	return &AppError{
		Code:    ErrCodeCast,
		Message: fmt.Sprintf("field %q: value %s violates %s", field, quoteValue(value), constraint),
		Details: map[string]any{
			DetailField:      field,
			DetailValue:      value,
			DetailConstraint: constraint,
		},
	}
}

// Schema creates a SchemaError.
func Schema(format string, args ...any) *AppError {
	return Newf(ErrCodeSchema, format, args...)
}

// DuplicateName creates a SchemaError for a name collision.
func DuplicateName(kind, name string) *AppError {
	return &AppError{
		Code:    ErrCodeSchema,
		Message: fmt.Sprintf("duplicate %s name %q", kind, name),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// MissingName creates a SchemaError for a name that does not exist.
func MissingName(kind, name string) *AppError {
	return &AppError{
		Code:    ErrCodeSchema,
		Message: fmt.Sprintf("%s %q not found", kind, name),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// ExhaustedStream creates an ExhaustedStreamError for resource.
func ExhaustedStream(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeExhaustedStream,
		Message: fmt.Sprintf("stream of resource %q was already consumed", resource),
		Details: map[string]any{DetailResource: resource},
	}
}

// PackageContract creates a PackageContractError.
func PackageContract(format string, args ...any) *AppError {
	return Newf(ErrCodePackageContract, format, args...)
}

// StepFailed wraps a plain error returned by step code.
func StepFailed(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeStepFailed,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NotFound creates a NOT_FOUND error.
func NotFound(kind, name string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", kind, name),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// Storage wraps a storage backend failure.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeStorage,
		Message: fmt.Sprintf("storage %s failed", op),
		Details: map[string]any{"operation": op},
		Cause:   cause,
	}
}

// Database creates a DATABASE_ERROR for a failed SQL operation.
func Database(op string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeDatabase,
		Message: fmt.Sprintf("database %s failed", op),
		Details: map[string]any{"operation": op},
		Cause:   cause,
	}
}

// InvalidInput creates an INVALID_INPUT error.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details[DetailField] = field
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an INVALID_INPUT error from a validation message.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

func quoteValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
