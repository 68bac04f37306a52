// Package apperr defines the error categories surfaced to API callers.
//
// Domain services return *Error values (or wrap them); the gateway translates
// the Kind into an HTTP status and a JSON envelope. Errors that are not an
// *Error are treated as internal faults and never exposed verbatim.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the machine-checkable category of an error.
type Kind string

const (
	KindPermissionDenied Kind = "permission_denied"
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInternal         Kind = "internal_error"
)

// Sentinels for errors.Is. Matching is done on Kind only.
var (
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
)

// Error is a categorised, user-facing error.
type Error struct {
	Kind    Kind
	Message string
	// Fields maps a wire field name to a message. Only set for validation
	// and conflict errors.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func PermissionDenied(msg string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// InvalidField is a validation error for a single field.
func InvalidField(field, msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "données invalides",
		Fields:  map[string]string{field: msg},
	}
}

func Conflict(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindConflict, Message: msg, Fields: fields}
}

// KindOf returns the Kind of err, or KindInternal if err carries no *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to its response status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
