package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the API-facing error type. Status drives the HTTP response
// code, Code is a stable machine-readable identifier.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Validation covers malformed request bodies and missing required
// fields. Fails fast, before any I/O.
func Validation(msg string) *Error {
	return New(http.StatusBadRequest, "invalid_request", errors.New(msg))
}

func Validationf(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, "invalid_request", fmt.Errorf(format, args...))
}

// Authorization covers non-editor callers attempting a privileged
// operation.
func Authorization(msg string) *Error {
	return New(http.StatusForbidden, "forbidden", errors.New(msg))
}

// Unauthenticated covers anonymous callers on privileged endpoints.
func Unauthenticated(msg string) *Error {
	return New(http.StatusUnauthorized, "unauthorized", errors.New(msg))
}

// NotFound covers absent prompts, plans and files.
func NotFound(msg string) *Error {
	return New(http.StatusNotFound, "not_found", errors.New(msg))
}

// Upstream covers gateway failures that were not recoverable locally.
// The upstream's message is surfaced verbatim.
func Upstream(msg string) *Error {
	return New(http.StatusBadGateway, "upstream_error", errors.New(msg))
}

// Status returns the HTTP status for err, defaulting to 500.
func Status(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the machine-readable code for err.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return "internal_error"
}
