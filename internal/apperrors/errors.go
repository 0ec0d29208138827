// Package apperrors defines the arena core's error taxonomy.
//
// The taxonomy is five kinds, not five Go types: ConfigError, InvocationError,
// ParseError, PersistenceError, and ProtocolError. Each carries a message and
// an optional wrapped cause, and is classified by Kind for logging and for
// callers that need to branch on the taxonomy (Is* helpers below).
package apperrors

import (
	"errors"
	"fmt"
)

// Kind names one of the five error-taxonomy members.
type Kind string

const (
	// KindConfig covers: agent not in registry, workspace missing, unknown CLI type.
	// Surfaces to the host and aborts the current operation.
	KindConfig Kind = "config_error"

	// KindInvocation covers: subprocess timeout, non-zero exit, missing binary.
	// Captured inside the adapter as a sentinel AgentOutput; never aborts the turn.
	KindInvocation Kind = "invocation_error"

	// KindParse covers: unparseable JSON from the CLI, malformed memory marker JSON.
	// The parser degrades rather than failing the caller.
	KindParse Kind = "parse_error"

	// KindPersistence covers: storage layer failure. Propagates to the caller.
	KindPersistence Kind = "persistence_error"

	// KindProtocol covers: missing group, unknown mention. Logged, operation
	// returns silently.
	KindProtocol Kind = "protocol_error"
)

// AppError is the arena core's error value, carrying a taxonomy Kind, a
// human-readable message, and an optional wrapped cause.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Config builds a ConfigError.
func Config(message string) *AppError {
	return &AppError{Kind: KindConfig, Message: message}
}

// ConfigWrap builds a ConfigError wrapping an underlying cause.
func ConfigWrap(message string, err error) *AppError {
	return &AppError{Kind: KindConfig, Message: message, Err: err}
}

// Invocation builds an InvocationError.
func Invocation(message string, err error) *AppError {
	return &AppError{Kind: KindInvocation, Message: message, Err: err}
}

// Parse builds a ParseError.
func Parse(message string, err error) *AppError {
	return &AppError{Kind: KindParse, Message: message, Err: err}
}

// Persistence builds a PersistenceError.
func Persistence(message string, err error) *AppError {
	return &AppError{Kind: KindPersistence, Message: message, Err: err}
}

// Protocol builds a ProtocolError.
func Protocol(message string) *AppError {
	return &AppError{Kind: KindProtocol, Message: message}
}

// Wrap classifies an existing error as an AppError, preserving its Kind if it
// already is one, otherwise classifying it as a PersistenceError (the
// catch-all for "something below us failed").
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{Kind: appErr.Kind, Message: fmt.Sprintf("%s: %s", message, appErr.Message), Err: err}
	}
	return &AppError{Kind: KindPersistence, Message: message, Err: err}
}

func is(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool { return is(err, KindConfig) }

// IsInvocation reports whether err is an InvocationError.
func IsInvocation(err error) bool { return is(err, KindInvocation) }

// IsParse reports whether err is a ParseError.
func IsParse(err error) bool { return is(err, KindParse) }

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool { return is(err, KindPersistence) }

// IsProtocol reports whether err is a ProtocolError.
func IsProtocol(err error) bool { return is(err, KindProtocol) }

// KindOf returns the Kind of err, or "" if err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
