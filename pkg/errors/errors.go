// Package errors provides structured, coded errors for refold.
// Error codes give tests and callers a stable way to match failure
// categories without parsing message strings.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for the failure categories of the resolution and
// reconciliation pipeline.
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Manifest errors
	ErrManifestLoad  ErrorCode = "MANIFEST_LOAD"
	ErrManifestParse ErrorCode = "MANIFEST_PARSE"

	// Variable errors
	ErrVariableMissing  ErrorCode = "VARIABLE_MISSING"
	ErrVariableReserved ErrorCode = "VARIABLE_RESERVED"
	ErrVariableCycle    ErrorCode = "VARIABLE_CYCLE"

	// Tag errors
	ErrTagUndeclared ErrorCode = "TAG_UNDECLARED"
	ErrTagConflict   ErrorCode = "TAG_CONFLICT"
	ErrTagInvalid    ErrorCode = "TAG_INVALID"

	// Resolution errors
	ErrPathCollision  ErrorCode = "PATH_COLLISION"
	ErrRecursionLimit ErrorCode = "RECURSION_LIMIT"
	ErrEmptyInclusion ErrorCode = "EMPTY_INCLUSION"

	// Content errors
	ErrHashMismatch    ErrorCode = "HASH_MISMATCH"
	ErrSourceExhausted ErrorCode = "SOURCE_EXHAUSTED"
	ErrFetch           ErrorCode = "FETCH"
	ErrEdit            ErrorCode = "EDIT"
	ErrDecrypt         ErrorCode = "DECRYPT"

	// FileSystem errors
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileWrite    ErrorCode = "FILE_WRITE"
	ErrUnsafePath   ErrorCode = "UNSAFE_PATH"
	ErrNotConfirmed ErrorCode = "NOT_CONFIRMED"
)

// RefoldError represents a structured error with code and details
type RefoldError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RefoldError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RefoldError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *RefoldError) Is(target error) bool {
	var targetErr *RefoldError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new RefoldError with the given code and message
func New(code ErrorCode, message string) *RefoldError {
	return &RefoldError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RefoldError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RefoldError {
	return &RefoldError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a RefoldError
func Wrap(err error, code ErrorCode, message string) *RefoldError {
	if err == nil {
		return nil
	}
	return &RefoldError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RefoldError {
	if err == nil {
		return nil
	}
	return &RefoldError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *RefoldError) WithDetail(key string, value interface{}) *RefoldError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var refoldErr *RefoldError
	if errors.As(err, &refoldErr) {
		return refoldErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a RefoldError
func GetErrorCode(err error) ErrorCode {
	var refoldErr *RefoldError
	if errors.As(err, &refoldErr) {
		return refoldErr.Code
	}
	return ErrUnknown
}
