// Package apperr classifies failures so callers can map them to HTTP
// statuses or user messages without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is an error category. Kinds are matched with errors.Is.
type Kind struct {
	name string
}

func (k *Kind) Error() string { return k.name }

var (
	// Validation covers malformed input rejected before any storage access.
	Validation = &Kind{name: "validation"}
	// Authorization covers callers lacking ownership or role.
	Authorization = &Kind{name: "authorization"}
	// NotFound covers references to absent entities.
	NotFound = &Kind{name: "not found"}
	// InvalidState covers operations not legal in the current lifecycle state.
	InvalidState = &Kind{name: "invalid state"}
	// Conflict covers uniqueness races lost at the storage layer.
	Conflict = &Kind{name: "conflict"}
	// Infrastructure covers storage or network unavailability.
	Infrastructure = &Kind{name: "infrastructure"}
)

// Error carries a kind, a user-safe message, and an optional cause.
type Error struct {
	kind  *Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Message returns the user-safe message without the cause.
func (e *Error) Message() string { return e.msg }

func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.cause }

// New builds an error of the given kind with a user-safe message.
func New(kind *Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Newf is New with formatting.
func Newf(kind *Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind *Kind, msg string, cause error) error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

// MessageOf extracts the user-safe message, falling back to err.Error().
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return err.Error()
}
