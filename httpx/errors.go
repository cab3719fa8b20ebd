package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failures an API call can end in.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindUnauthorized
	KindValidation
)

func (k Kind) Code() string {
	switch k {
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindValidation:
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

func (k Kind) Status() int {
	switch k {
	case KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	return k.Code()
}

// Error is what every handler failure is turned into before rendering.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Cause)
	}
	return e.Kind.Code() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, msg string, args ...any) *Error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

func BadRequest(msg string, args ...any) *Error {
	return newError(KindBadRequest, msg, args...)
}

func NotFound(msg string, args ...any) *Error {
	return newError(KindNotFound, msg, args...)
}

func Unauthorized(msg string, args ...any) *Error {
	return newError(KindUnauthorized, msg, args...)
}

func Validation(msg string, args ...any) *Error {
	return newError(KindValidation, msg, args...)
}

func Internal(msg string, args ...any) *Error {
	return newError(KindInternal, msg, args...)
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(kind Kind, cause error, msg string, args ...any) *Error {
	e := newError(kind, msg, args...)
	e.Cause = cause
	return e
}

// AsError finds the *Error in err's chain, or coerces err into the
// internal kind.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: err.Error(), Cause: err}
}

// IsKind reports whether err converts to an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && AsError(err).Kind == k
}
