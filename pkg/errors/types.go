package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeValidation    ErrorCode = "VALIDATION"

	// Resource errors
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Pipeline errors
	ErrCodeCaptureStart ErrorCode = "CAPTURE_START"
	ErrCodeRunLocked    ErrorCode = "RUN_LOCKED"
	ErrCodeStitch       ErrorCode = "STITCH_FAILED"
	ErrCodeUpload       ErrorCode = "UPLOAD_FAILED"
	ErrCodeNotify       ErrorCode = "NOTIFY_FAILED"
	ErrCodeRetention    ErrorCode = "RETENTION_FAILED"
	ErrCodeEmptyCapture ErrorCode = "EMPTY_CAPTURE"

	// External service errors
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE"

	// Internal errors
	ErrCodeDatabaseQuery ErrorCode = "DATABASE_QUERY"
	ErrCodeInternal      ErrorCode = "INTERNAL"
)

// Class groups error codes by how a run reacts to them.
type Class string

const (
	ClassTransient      Class = "transient"
	ClassFatalSetup     Class = "fatal_setup"
	ClassFatalIntegrity Class = "fatal_integrity"
	ClassFatal          Class = "fatal"
	ClassBoundary       Class = "boundary"
)

// AppError represents a structured application error
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Cause    error                  `json:"-"`
	HTTPCode int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetHTTPCode returns the appropriate HTTP status code
func (e *AppError) GetHTTPCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}
	return getDefaultHTTPCode(e.Code)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Newf creates a new AppError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Cause:    cause,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// getDefaultHTTPCode returns the default HTTP status code for an error code
func getDefaultHTTPCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRunLocked:
		return http.StatusConflict
	case ErrCodeValidation, ErrCodeConfigInvalid, ErrCodeMissingField:
		return http.StatusBadRequest
	case ErrCodeExternalService, ErrCodeUpload, ErrCodeNotify, ErrCodeRetention:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

// NotFound creates a not found error
func NotFound(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// ValidationError creates a validation error
func ValidationError(field string, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// MissingFieldError creates a missing field error
func MissingFieldError(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("required field '%s' is missing", field)).
		WithDetail("field", field)
}

// DatabaseError creates a database error
func DatabaseError(operation string, cause error) *AppError {
	return Wrap(cause, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithDetail("operation", operation)
}

// ExternalServiceError creates an external service error
func ExternalServiceError(service string, cause error) *AppError {
	return Wrap(cause, ErrCodeExternalService, fmt.Sprintf("external service '%s' error", service)).
		WithDetail("service", service)
}

// ConfigError creates a configuration error
func ConfigError(key string, reason string) *AppError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("configuration error for '%s': %s", key, reason)).
		WithDetail("key", key).
		WithDetail("reason", reason)
}

// StageError wraps the failure of a pipeline stage, keeping the stage's own
// error reachable through Unwrap.
func StageError(code ErrorCode, stage string, cause error) *AppError {
	return Wrap(cause, code, fmt.Sprintf("stage '%s' failed", stage)).
		WithDetail("stage", stage)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if an error is of a specific type
func Is(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.GetHTTPCode()
	}
	return http.StatusInternalServerError
}

// Classify maps an error onto the run's failure taxonomy.
func Classify(err error) Class {
	switch GetCode(err) {
	case ErrCodeExternalService:
		return ClassTransient
	case ErrCodeConfigInvalid, ErrCodeMissingField, ErrCodeValidation,
		ErrCodeCaptureStart, ErrCodeRunLocked:
		return ClassFatalSetup
	case ErrCodeStitch:
		return ClassFatalIntegrity
	case ErrCodeEmptyCapture:
		return ClassBoundary
	default:
		return ClassFatal
	}
}
