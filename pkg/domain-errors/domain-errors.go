package domainerrors

import "errors"

// Code represents a gating error category independent of transport layer.
// These codes describe why a request was refused or failed in pipeline terms,
// not HTTP terms.
type Code string

const (
	// CodeValidation means the query payload was rejected before processing.
	CodeValidation Code = "validation_failed"
	// CodeUnauthorized means no acceptable credential was presented.
	CodeUnauthorized Code = "unauthorized"
	// CodeRateLimited means the client exhausted its sliding-window quota.
	CodeRateLimited Code = "rate_limited"
	// CodeNotFound means the requested resource does not exist.
	CodeNotFound Code = "not_found"
	// CodeUpstream means the external query processor failed.
	CodeUpstream Code = "upstream_error"
	// CodeUnavailable means a required dependency is not configured or down.
	CodeUnavailable Code = "unavailable"
	// CodeInternal is the catch-all for genuinely unexpected faults.
	CodeInternal Code = "internal_error"
)

// Error wraps pipeline or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across gate, upstream, and
// transport layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
