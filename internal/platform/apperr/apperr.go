// Package apperr defines the error kinds surfaced by the API and their
// mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindMethodNotAllowed    Kind = "method_not_allowed"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamFormat      Kind = "upstream_format"
	KindIndexRequired       Kind = "index_required"
	KindTransientStore      Kind = "transient_store"
	KindInternal            Kind = "internal"
)

// Error carries a kind, a client-facing message and optional details.
// Err is the wrapped cause and is never serialized.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func UpstreamUnavailable(msg string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: msg, Err: err}
}

// UpstreamFormat reports a model reply that could not be parsed. The raw
// reply text travels in Details so callers can inspect it.
func UpstreamFormat(msg string, raw string, err error) *Error {
	details := map[string]string{"rawResponse": raw}
	if err != nil {
		details["parseError"] = err.Error()
	}
	return &Error{Kind: KindUpstreamFormat, Message: msg, Details: details, Err: err}
}

func IndexRequired(msg string, err error) *Error {
	return &Error{Kind: KindIndexRequired, Message: msg, Err: err}
}

func TransientStore(msg string, err error) *Error {
	return &Error{Kind: KindTransientStore, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
