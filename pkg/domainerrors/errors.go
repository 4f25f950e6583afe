// Package domainerrors provides coded errors shared across services and
// transport. Handlers map codes to HTTP statuses; services create and inspect
// them without importing net/http.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that need to branch on outcome.
type Code string

const (
	// CodeThrottled signals a rate limit was reached for a category. Surfaced
	// to the user as a blocking failure, retried only after the window.
	CodeThrottled Code = "throttled"
	// CodePreconditionNotMet signals a step was accessed out of order.
	// Recovered locally by redirecting, never surfaced as a user error.
	CodePreconditionNotMet Code = "precondition_not_met"
	// CodeAsyncExpired signals a poll observed an expired vendor job.
	CodeAsyncExpired Code = "async_expired"
	// CodeVendorError carries a normalized per-field vendor error map.
	CodeVendorError Code = "vendor_error"
	// CodeFraudBlocked signals activation was refused by the fraud state.
	CodeFraudBlocked Code = "fraud_blocked"
	// CodeConfiguration signals deployment misconfiguration. Fatal.
	CodeConfiguration Code = "configuration"

	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeBadRequest Code = "bad_request"
	CodeInternal   Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so transport never leaks raw internals.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
