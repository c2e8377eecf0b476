// Package apperr defines the typed error values shared by the HTTP layer.
//
// Every failure a handler or middleware can anticipate is expressed as a
// single *Error carrying a Kind, an HTTP status code, a client-safe message,
// and an operational flag. Handlers do not write these errors themselves;
// they forward them to the central responder (middleware.ErrorResponder),
// which derives the response from StatusCode and IsOperational.
//
// Errors that are not *Error (database failures, panics, bugs) are treated
// as non-operational: the responder logs them and answers with a generic 500.
package apperr

import (
	"errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Kind tags the variant of an *Error.
type Kind string

const (
	KindApp            Kind = "app_error"
	KindNotFound       Kind = "not_found"
	KindValidation     Kind = "validation_error"
	KindForbidden      Kind = "forbidden"
	KindAuthentication Kind = "unauthorized"
)

// Error is an anticipated failure that is safe to expose to the caller.
type Error struct {
	Kind        Kind
	Code        int
	Message     string
	Operational bool

	// stack is captured at construction so the responder can log where the
	// error originated.
	stack error
}

// New constructs an operational error with an explicit status code.
func New(message string, code int) *Error {
	return newError(KindApp, message, code)
}

// NotFound reports a missing resource, e.g. NotFound("Product") yields
// "Product not found" with status 404.
func NotFound(resource string) *Error {
	if resource == "" {
		resource = "resource"
	}
	return newError(KindNotFound, resource+" not found", http.StatusNotFound)
}

// Validation reports malformed input (400).
func Validation(message string) *Error {
	if message == "" {
		message = "Invalid Input"
	}
	return newError(KindValidation, message, http.StatusBadRequest)
}

// Forbidden reports an authorization failure (403).
func Forbidden(message string) *Error {
	if message == "" {
		message = "Not Authorized"
	}
	return newError(KindForbidden, message, http.StatusForbidden)
}

// Authentication reports a missing or wrong credential (401).
func Authentication(message string) *Error {
	if message == "" {
		message = "Authentication failed"
	}
	return newError(KindAuthentication, message, http.StatusUnauthorized)
}

func newError(kind Kind, message string, code int) *Error {
	return &Error{
		Kind:        kind,
		Code:        code,
		Message:     message,
		Operational: true,
		stack:       pkgerrors.New(message),
	}
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap exposes the stack-carrying cause to errors.As and to
// zerolog's pkgerrors stack marshaler.
func (e *Error) Unwrap() error { return e.stack }

// Status returns the error class: "Fail" for 4xx codes, "Error" otherwise.
func (e *Error) Status() string { return StatusClass(e.Code) }

// Name returns the variant name used in logs.
func (e *Error) Name() string {
	switch e.Kind {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationError"
	case KindForbidden:
		return "ForbiddenError"
	case KindAuthentication:
		return "AuthenticationError"
	default:
		return "AppError"
	}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae, true
	}
	return nil, false
}

// StatusCode derives the HTTP status for err. Anything that is not an *Error,
// or carries an out-of-range code, maps to 500.
func StatusCode(err error) int {
	if ae, ok := As(err); ok && ae.Code >= 100 && ae.Code <= 599 {
		return ae.Code
	}
	return http.StatusInternalServerError
}

// IsOperational reports whether err (or something it wraps) is an
// operational *Error whose message may be shown to the client.
func IsOperational(err error) bool {
	ae, ok := As(err)
	return ok && ae.Operational
}

// StatusClass returns "Fail" for 4xx statuses and "Error" for the rest.
func StatusClass(code int) string {
	if code >= 400 && code < 500 {
		return "Fail"
	}
	return "Error"
}
