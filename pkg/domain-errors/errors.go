// Package domainerrors carries the error taxonomy shared by services and the HTTP
// boundary. Services classify failures into a Code; handlers translate the Code into
// a status and a client-safe message.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeStorage      Code = "storage_error"
	CodeTimeout      Code = "timeout"
	CodeRateLimited  Code = "rate_limited"
	CodeInternal     Code = "internal_error"
)

// Reason refines a Code with a machine-readable cause, e.g. which validation failed.
type Reason string

// Error is a classified domain error. Err holds the underlying cause, which is
// logged but never rendered to clients.
type Error struct {
	Code    Code
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports equality on code, reason and message so tests can compare against
// a freshly constructed error with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason && e.Message == t.Message
}

// New creates a classified error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewWithReason creates a classified error with a refining reason.
func NewWithReason(code Code, reason Reason, msg string) error {
	return &Error{Code: code, Reason: reason, Message: msg}
}

// Wrap classifies err under code, keeping it as the cause.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost domain error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// HasReason reports whether err carries the given reason.
func HasReason(err error, reason Reason) bool {
	de, ok := As(err)
	return ok && de.Reason == reason
}

// CodeOf returns the code carried by err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeStorage:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
