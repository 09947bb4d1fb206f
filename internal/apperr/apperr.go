// Package apperr defines the error taxonomy shared by every service.
//
// Services return *Error values (possibly wrapped with fmt.Errorf and %w);
// the HTTP layer inspects them with KindOf to choose a status code and a
// user-facing message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindBackend Kind = iota
	KindAuthRequired
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "auth_required"
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConfiguration:
		return "configuration_error"
	default:
		return "backend_error"
	}
}

// Status returns the HTTP status code used for the kind.
func (k Kind) Status() int {
	switch k {
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// AuthRequired reports that the operation needs a signed-in identity.
func AuthRequired() error {
	return &Error{Kind: KindAuthRequired, Message: "You must be signed in to do that"}
}

// AuthFailed is an AuthRequired error with a specific message (bad credentials, expired session).
func AuthFailed(msg string) error {
	return &Error{Kind: KindAuthRequired, Message: msg}
}

func Validation(msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Configuration(msg string) error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// Backend wraps a database, storage or network failure.
func Backend(msg string, err error) error {
	return &Error{Kind: KindBackend, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors that are not classified are backend errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindBackend
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
