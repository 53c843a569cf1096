package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies repository failures so callers can pick the right
// remediation: fix the input, stop asking for a missing record, or retry later.
type ErrorKind string

const (
	// KindValidation marks malformed or missing key fields on a record or row.
	KindValidation ErrorKind = "validation"
	// KindNotFound marks an update or delete targeting a non-existent key.
	KindNotFound ErrorKind = "not_found"
	// KindQueryFailed marks a backend rejection (constraint, timeout, connectivity).
	KindQueryFailed ErrorKind = "query_failed"
	// KindMisconfigured marks adapter construction failing on missing settings.
	KindMisconfigured ErrorKind = "misconfigured"
)

// Error tags a failure with its taxonomy kind. The message keeps the backend's
// wording; only the kind is normalized across adapters.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind, so callers can test with errors.Is
// against the exported sentinels below.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind && (te.Msg == "" || te.Msg == e.Msg)
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrQueryFailed   = &Error{Kind: KindQueryFailed}
	ErrMisconfigured = &Error{Kind: KindMisconfigured}
)

// Validationf builds a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// QueryFailed wraps a backend failure, keeping its message reachable via Unwrap.
func QueryFailed(msg string, err error) *Error {
	return &Error{Kind: KindQueryFailed, Msg: msg, Err: err}
}

// Misconfigured reports missing or invalid connection settings.
func Misconfigured(msg string) *Error {
	return &Error{Kind: KindMisconfigured, Msg: msg}
}

// KindOf extracts the taxonomy kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
