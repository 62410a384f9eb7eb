// Package apperr defines the error kinds every request failure is reduced to
// before it reaches the client.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindUnauthenticated    Kind = "unauthenticated"
	KindTokenExpired       Kind = "token_expired"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindValidation         Kind = "validation"
	KindDuplicateIdentity  Kind = "duplicate_identity"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindInternal           Kind = "internal"
)

// Error carries a kind, a client-facing message and, for validation
// failures, one entry per violated field constraint.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, "; "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }

func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

func NotFound(msg string) *Error { return New(KindNotFound, msg) }

func Internal(msg string, err error) *Error { return Wrap(KindInternal, msg, err) }

// Validation builds a validation error from the collected field messages.
// It returns nil when fields is empty so callers can return it directly.
func Validation(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// KindOf reports the kind of err, treating anything unclassified as internal.
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

// OrInternal returns err unchanged when it is already classified, and
// otherwise wraps it as internal with msg as the client-facing text.
func OrInternal(msg string, err error) error {
	if KindOf(err) != KindInternal {
		return err
	}
	return Internal(msg, err)
}
