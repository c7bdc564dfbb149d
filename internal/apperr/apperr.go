// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an application error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string
	Error string
}

// Error is an application error with a kind and an optional set of field errors.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	return e.Message
}

// FieldMap returns the field errors keyed by field name.
func (e *Error) FieldMap() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Error
	}
	return m
}

func newErr(kind Kind, format string, args ...interface{}) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Field is a shorthand for a validation error on a single field.
func Field(field, msg string) error {
	return &Error{
		Kind:    KindValidation,
		Message: msg,
		Fields:  []FieldError{{Field: field, Error: msg}},
	}
}

func Unauthenticated(format string, args ...interface{}) error {
	return newErr(KindUnauthenticated, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newErr(KindForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newErr(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newErr(KindConflict, format, args...)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err; unknown errors are internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
