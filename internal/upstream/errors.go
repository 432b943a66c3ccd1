package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBodyTooLarge marks a response cut off at the size limit. Nothing of
// it is returned.
var ErrBodyTooLarge = errors.New("upstream response exceeds size limit")

// Kind classifies a failed upstream call. Callers switch on the kind, never
// on the message, which is meant for humans.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindTimeout      Kind = "timeout"
	KindCanceled     Kind = "canceled"
	KindHTTP         Kind = "http"
	KindUnstructured Kind = "unstructured"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindUnavailable  Kind = "unavailable"
)

// Error is the normalized failure of one upstream operation. Message is the
// upstream's own message when it sent one, otherwise the operation default.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: %s (status %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("upstream %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or "" when err is not an upstream error.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// MessageOf returns the human-readable message carried by err.
func MessageOf(err error) string {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Message
	}
	return defaultMessage("")
}

func kindForStatus(status int, structured bool) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return KindConflict
	case http.StatusServiceUnavailable:
		return KindUnavailable
	}
	if !structured {
		return KindUnstructured
	}
	return KindHTTP
}

// tripsBreaker reports whether err counts as an upstream failure for the
// circuit breaker. Client mistakes (4xx) and cancellations do not.
func tripsBreaker(err error) bool {
	var ue *Error
	if !errors.As(err, &ue) {
		return true
	}
	switch ue.Kind {
	case KindNetwork, KindTimeout, KindUnavailable:
		return true
	case KindHTTP, KindUnstructured:
		return ue.Status == 0 || ue.Status >= 500
	}
	return false
}
