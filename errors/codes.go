package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Build-time errors
const (
	// ErrCodeStepSignature indicates a step whose kind cannot be classified.
	ErrCodeStepSignature ErrorCode = "STEP_SIGNATURE"
)

// Execution-time errors
const (
	// ErrCodeCast indicates a value that fails its declared type or constraints.
	ErrCodeCast ErrorCode = "CAST_ERROR"
	// ErrCodeSchema indicates a duplicate or missing field or resource name,
	// or a schema mutated after its rows started streaming.
	ErrCodeSchema ErrorCode = "SCHEMA_ERROR"
	// ErrCodeExhaustedStream indicates a single-pass stream iterated twice.
	ErrCodeExhaustedStream ErrorCode = "EXHAUSTED_STREAM"
	// ErrCodePackageContract indicates a package step that did not yield its
	// declared resource set.
	ErrCodePackageContract ErrorCode = "PACKAGE_CONTRACT"
	// ErrCodeStepFailed wraps a plain error returned by step code.
	ErrCodeStepFailed ErrorCode = "STEP_FAILED"
)

// Collaborator errors
const (
	// ErrCodeNotFound indicates a missing checkpoint, object or resource.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeStorage indicates a failure of the underlying storage backend.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeInvalidInput indicates invalid configuration or arguments.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeDatabase indicates a failed SQL operation.
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

var buildTimeCodes = map[ErrorCode]bool{
	ErrCodeStepSignature: true,
}

// IsBuildTimeCode reports whether errors with this code are raised before any
// row is processed.
func IsBuildTimeCode(code ErrorCode) bool {
	return buildTimeCodes[code]
}
