// Package apperrors defines the error taxonomy shared by the ranking core,
// the services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an AppError.
type ErrorCode string

const (
	CodeInput              ErrorCode = "INVALID_INPUT"
	CodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	CodeNoResults          ErrorCode = "NO_RESULTS_AVAILABLE"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Any AppError with the same code matches.
var (
	ErrInvalidInput       = &AppError{Code: CodeInput, Message: "invalid input"}
	ErrBackendUnavailable = &AppError{Code: CodeBackendUnavailable, Message: "backend unavailable"}
	ErrNoResultsAvailable = &AppError{Code: CodeNoResults, Message: "no results available"}
	ErrNotFound           = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized       = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrConflict           = &AppError{Code: CodeConflict, Message: "conflict"}
)

// AppError carries a code, a client-safe message and an optional cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// StatusCode returns the HTTP status for the error code.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeBackendUnavailable, CodeNoResults:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithCause returns a copy of e wrapping cause.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// New creates an application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Input creates an InputError with a formatted message.
func Input(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInput, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error for the named resource.
func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: resource + " not found"}
}

// Unavailable wraps a backend failure.
func Unavailable(backend string, cause error) *AppError {
	return &AppError{Code: CodeBackendUnavailable, Message: backend + " unavailable", Cause: cause}
}

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Cause: cause}
}

// From extracts the first AppError in err's chain. Errors without one are
// reported as internal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}
