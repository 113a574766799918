// Package apierr defines the error taxonomy shared by every core
// package and the HTTP/CLI boundaries that translate it outward.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and for the HTTP/CLI mapping
// table. Handling policy lives with the caller, not with Kind itself.
type Kind string

const (
	InvalidInput  Kind = "invalid_input"
	NotFound      Kind = "not_found"
	Conflict      Kind = "conflict"
	Authorization Kind = "authorization"
	Policy        Kind = "policy"
	Quota         Kind = "quota"
	Transient     Kind = "transient"
	Timeout       Kind = "timeout"
	Integrity     Kind = "integrity"
	Fatal         Kind = "fatal"
)

// Error wraps an underlying cause with a Kind so that callers can branch
// on errors.As without string-matching messages.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with the given kind and a formatted message.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error, preserving it via Unwrap.
func Wrap(kind Kind, op string, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err, defaulting to Fatal when err does not
// carry one; an un-kinded error reaching a boundary is itself a bug,
// but boundaries must still answer with something.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Fatal
}

// HTTPStatus maps a Kind to the status code used by internal/httpapi,
// per the table in the error handling design.
func HTTPStatus(k Kind) int {
	switch k {
	case InvalidInput:
		return 400
	case NotFound:
		return 404
	case Conflict:
		return 409
	case Authorization, Policy:
		return 403
	case Quota:
		return 413
	case Timeout:
		return 504
	default:
		return 500
	}
}

// ExitCode maps a Kind to its CLI exit code.
func ExitCode(k Kind) int {
	switch k {
	case InvalidInput:
		return 2
	case Fatal:
		return 1
	default:
		return 1
	}
}
