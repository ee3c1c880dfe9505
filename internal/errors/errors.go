package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tddocs error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrMalformedRecord ErrorCode = "MALFORMED_RECORD" // 422
	ErrInitialization  ErrorCode = "INITIALIZATION"   // 503
	ErrCacheInvalid    ErrorCode = "CACHE_INVALID"    // 500, never surfaced to callers
	ErrIO              ErrorCode = "IO"               // 500
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// DocsError represents a structured error with code, status, and details.
type DocsError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *DocsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DocsError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DocsError {
	return &DocsError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a lookup that resolved to nothing.
// kind is the corpus that was searched ("operator", "tutorial", "python class").
func NewNotFound(kind, identifier string) *DocsError {
	return &DocsError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewMalformedRecord creates a 422 error for a raw record that cannot be normalized.
// source identifies where the record came from (usually a file path).
func NewMalformedRecord(source, reason string) *DocsError {
	return &DocsError{
		Code:    ErrMalformedRecord,
		Status:  422,
		Message: fmt.Sprintf("malformed record in %s: %s", source, reason),
		Details: map[string]any{"source": source},
	}
}

// NewInitialization creates a 503 error for queries issued before the corpus is ready,
// or for an initialize run that loaded nothing.
func NewInitialization(msg string) *DocsError {
	return &DocsError{
		Code:    ErrInitialization,
		Status:  503,
		Message: msg,
	}
}

// NewCacheInvalid creates an error describing why a persisted cache was rejected.
func NewCacheInvalid(reason string) *DocsError {
	return &DocsError{
		Code:    ErrCacheInvalid,
		Status:  500,
		Message: fmt.Sprintf("cache invalid: %s", reason),
	}
}

// NewIO wraps a filesystem or database failure in the persistence layer.
func NewIO(op string, err error) *DocsError {
	msg := op
	if err != nil {
		msg = fmt.Sprintf("%s: %v", op, err)
	}
	return &DocsError{
		Code:    ErrIO,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DocsError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DocsError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err (or anything it wraps) is a DocsError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DocsError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
