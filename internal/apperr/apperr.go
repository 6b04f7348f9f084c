// Package apperr defines the typed error vocabulary of the discovery engine
// and centralizes the mapping to transport status codes, so the service layer
// never formats HTTP responses itself.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindSelfAction
	KindNotFound
	KindPermission
	KindDuplicate
	KindDependency
)

// Error carries a kind plus a caller-safe message. The wrapped cause is kept
// for logs only and never rendered to clients.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func SelfAction(msg string) *Error {
	return &Error{Kind: KindSelfAction, Msg: msg}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Permission(msg string) *Error {
	return &Error{Kind: KindPermission, Msg: msg}
}

func Duplicate(msg string) *Error {
	return &Error{Kind: KindDuplicate, Msg: msg}
}

// Dependency wraps a storage/provider failure. msg is what the client sees;
// err is what the logs see.
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Msg: msg, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Wrap converts infra errors into the taxonomy. Known storage sentinels get a
// kind; anything else becomes a dependency error with a generic message.
func Wrap(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound("%s", notFoundMsg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Dependency("request timed out", err)
	default:
		return Dependency("storage unavailable", err)
	}
}

// HTTPStatus maps an error to a status code and a caller-safe message.
// Internal error text is never leaked.
func HTTPStatus(err error) (int, string) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "internal error"
	}
	switch e.Kind {
	case KindValidation, KindSelfAction:
		return http.StatusBadRequest, e.Msg
	case KindNotFound:
		return http.StatusNotFound, e.Msg
	case KindPermission:
		return http.StatusForbidden, e.Msg
	case KindDuplicate:
		return http.StatusConflict, e.Msg
	case KindDependency:
		return http.StatusServiceUnavailable, e.Msg
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
