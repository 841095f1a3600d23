// Package jserr defines the error taxonomy shared by the type checking core.
//
// Every error carries the name of the JavaScript error constructor it maps to,
// so the host binding can rethrow it inside the runtime unchanged.
package jserr

import (
	"errors"
	"fmt"
)

// Error is implemented by all errors produced by the core.
type Error interface {
	error
	// Kind is the JavaScript constructor name: SyntaxError, TypeError or ReferenceError.
	Kind() string
	// Message returns the message without the kind prefix.
	Message() string
	Unwrap() error
}

// SyntaxError reports malformed annotation text or malformed callable source.
type SyntaxError struct {
	Msg   string
	Cause error
}

func (e *SyntaxError) Error() string   { return "SyntaxError: " + e.Msg }
func (e *SyntaxError) Kind() string    { return "SyntaxError" }
func (e *SyntaxError) Message() string { return e.Msg }
func (e *SyntaxError) Unwrap() error   { return e.Cause }

// TypeError reports a grammar-level violation at declaration time or a value
// mismatch at call time.
type TypeError struct {
	Msg   string
	Cause error
}

func (e *TypeError) Error() string   { return "TypeError: " + e.Msg }
func (e *TypeError) Kind() string    { return "TypeError" }
func (e *TypeError) Message() string { return e.Msg }
func (e *TypeError) Unwrap() error   { return e.Cause }

// ReferenceError reports an unresolvable type name or a registration collision.
type ReferenceError struct {
	Msg   string
	Cause error
}

func (e *ReferenceError) Error() string   { return "ReferenceError: " + e.Msg }
func (e *ReferenceError) Kind() string    { return "ReferenceError" }
func (e *ReferenceError) Message() string { return e.Msg }
func (e *ReferenceError) Unwrap() error   { return e.Cause }

// Syntaxf returns a *SyntaxError with a formatted message.
func Syntaxf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...)}
}

// Typef returns a *TypeError with a formatted message.
func Typef(format string, args ...any) *TypeError {
	return &TypeError{Msg: fmt.Sprintf(format, args...)}
}

// Referencef returns a *ReferenceError with a formatted message.
func Referencef(format string, args ...any) *ReferenceError {
	return &ReferenceError{Msg: fmt.Sprintf(format, args...)}
}

// Prefix re-wraps err with prefix prepended to its message, keeping its kind.
// The original error stays reachable through Unwrap. Errors outside the
// taxonomy become a *TypeError.
func Prefix(err error, prefix string) error {
	if err == nil {
		return nil
	}
	var je Error
	if !errors.As(err, &je) {
		return &TypeError{Msg: prefix + err.Error(), Cause: err}
	}
	msg := prefix + je.Message()
	switch je.(type) {
	case *SyntaxError:
		return &SyntaxError{Msg: msg, Cause: err}
	case *ReferenceError:
		return &ReferenceError{Msg: msg, Cause: err}
	default:
		return &TypeError{Msg: msg, Cause: err}
	}
}

// KindOf returns the JavaScript constructor name for err, defaulting to
// "Error" for errors outside the taxonomy.
func KindOf(err error) string {
	var je Error
	if errors.As(err, &je) {
		return je.Kind()
	}
	return "Error"
}

// MessageOf returns the message of err without its kind prefix.
func MessageOf(err error) string {
	var je Error
	if errors.As(err, &je) {
		return je.Message()
	}
	return err.Error()
}
