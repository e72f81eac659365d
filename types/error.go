package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Surface error codes. These are never retried by the engine.
const (
	ErrCodeValidation       ErrorCode = "VALIDATION"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConcurrencyLimit ErrorCode = "CONCURRENCY_LIMIT"
	ErrCodeStepExecution    ErrorCode = "STEP_EXECUTION"
)

// Classified runtime error codes. These drive task-level recovery
// decisions and are not necessarily fatal.
const (
	ErrCodeNetwork   ErrorCode = "NETWORK_ERROR"
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT"
	ErrCodeMissing   ErrorCode = "NOT_FOUND_RESOURCE"
	ErrCodeAuth      ErrorCode = "AUTH_ERROR"
	ErrCodeGeneric   ErrorCode = "GENERIC"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return GetErrorCode(err) == ErrCodeNotFound
}

// IsValidation reports whether err carries the VALIDATION code.
func IsValidation(err error) bool {
	return GetErrorCode(err) == ErrCodeValidation
}

// IsConcurrencyLimit reports whether err carries the CONCURRENCY_LIMIT code.
func IsConcurrencyLimit(err error) bool {
	return GetErrorCode(err) == ErrCodeConcurrencyLimit
}
