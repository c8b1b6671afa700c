// Package apperr defines the error kinds surfaced by the service layer.
// Handlers map a Kind to an HTTP status; the message is safe to show to
// clients while the wrapped cause is only logged.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a stable, machine-checkable error category.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindUnauthenticated     Kind = "unauthenticated"
	KindValidation          Kind = "validation"
	KindBadRequest          Kind = "bad_request"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternal            Kind = "internal"
)

// Error carries a kind, a human message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func NotFound(msg string) *Error { return newErr(KindNotFound, msg, nil) }

func Conflict(msg string) *Error { return newErr(KindConflict, msg, nil) }

func Unauthenticated(msg string, cause error) *Error {
	return newErr(KindUnauthenticated, msg, cause)
}

func Validation(msg string) *Error { return newErr(KindValidation, msg, nil) }

func BadRequest(msg string) *Error { return newErr(KindBadRequest, msg, nil) }

func Upstream(msg string, cause error) *Error {
	return newErr(KindUpstreamUnavailable, msg, cause)
}

func Internal(msg string, cause error) *Error { return newErr(KindInternal, msg, cause) }

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
