// Package apperr classifies failures so the transport layer can map them to
// status codes without leaking internal detail.
package apperr

import (
	"errors"
	"net/http"
)

// Kind enumerates error classes.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients; Err is not.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or malformed input for a field.
func Validation(field, message string) error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Conflict reports a duplicate or stale write.
func Conflict(message string, cause error) error {
	return &Error{Kind: KindConflict, Message: message, Err: cause}
}

// Unauthenticated reports bad credentials or a bad token.
func Unauthenticated(message string, cause error) error {
	return &Error{Kind: KindAuth, Message: message, Err: cause}
}

// Forbidden reports an authenticated caller that lacks permission.
func Forbidden(message string, cause error) error {
	return &Error{Kind: KindForbidden, Message: message, Err: cause}
}

// NotFound reports an absent resource.
func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Internal wraps a store, crypto or other unexpected failure.
func Internal(cause error) error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: cause}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Public returns the client facing message and field for err.
func Public(err error) (message, field string) {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		msg := e.Message
		if msg == "" {
			msg = e.Kind.String()
		}
		return msg, e.Field
	}
	return "internal server error", ""
}
