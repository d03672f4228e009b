// Package herr defines the closed error taxonomy shared across the engine.
//
// Every subsystem returns *Error (or wraps one with github.com/pkg/errors)
// rather than ad-hoc error strings, so the facade can annotate user-visible
// failures with backend context per the propagation policy.
package herr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a closed set of error categories.
type Code int

const (
	// NotFound covers missing files, URLs, or out-of-range selectors.
	NotFound Code = iota
	// ParseError covers malformed SQL, fragments, or JSON paths.
	ParseError
	// UnsupportedFormat covers an unrecognized extension with no format hint.
	UnsupportedFormat
	// UnsupportedFeature covers a query needing features the subset lacks,
	// with no external bridge available.
	UnsupportedFeature
	// TypeError covers a failed comparison or coercion.
	TypeError
	// IOError covers HTTP failures, download failures, and decode failures.
	IOError
	// DependencyMissing covers an absent optional collaborator.
	DependencyMissing
)

func (c Code) String() string {
	switch c {
	case NotFound:
		return "NotFound"
	case ParseError:
		return "ParseError"
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case UnsupportedFeature:
		return "UnsupportedFeature"
	case TypeError:
		return "TypeError"
	case IOError:
		return "IOError"
	case DependencyMissing:
		return "DependencyMissing"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every subsystem.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no cause.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that carries an underlying cause, preserving it via
// github.com/pkg/errors so callers retain a stack trace on the cause chain.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}

// Is reports whether err is an *Error of the given code, unwrapping as needed.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if he, ok := err.(*Error); ok {
			e = he
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Code == code
}
