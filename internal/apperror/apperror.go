// Package apperror defines the error taxonomy shared by services and the HTTP layer.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindStore covers persistence failures and anything unclassified.
	KindStore Kind = iota
	// KindNotFound is returned for absent entities and for entities owned by
	// someone else; callers cannot tell the two apart.
	KindNotFound
	// KindValidation marks malformed or missing input.
	KindValidation
	// KindUnauthenticated means there is no active session or the
	// credentials did not match.
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnauthenticated:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is the application error type. Message is safe to show to clients; Err
// carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

func Validation(message string, err error) *Error {
	return New(KindValidation, message, err)
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message, nil)
}

func Store(message string, err error) *Error {
	return New(KindStore, message, err)
}

// KindOf reports the kind of err, defaulting to KindStore for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

func IsUnauthenticated(err error) bool {
	return err != nil && KindOf(err) == KindUnauthenticated
}
