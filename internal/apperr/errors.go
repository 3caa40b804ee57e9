// Package apperr defines the error taxonomy shared by every layer.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Anything not wrapping one of these is internal.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// ErrMalformedID is reported by storage for identifiers that cannot exist.
var ErrMalformedID = fmt.Errorf("%w: malformed identifier", ErrInvalidInput)

// Error is a classified failure with an optional offending field.
type Error struct {
	Kind    error
	Field   string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

// InvalidInput reports a malformed or missing value.
func InvalidInput(field, msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Field: field, Message: msg}
}

// InvalidFields reports several field-level validation failures at once.
func InvalidFields(fields map[string]string) *Error {
	msg := "validation failed"
	if len(fields) == 1 {
		for k, v := range fields {
			msg = k + ": " + v
		}
	}
	return &Error{Kind: ErrInvalidInput, Message: msg, Fields: fields}
}

// NotFound reports a missing target or referenced resource.
func NotFound(field, msg string) *Error {
	return &Error{Kind: ErrNotFound, Field: field, Message: msg}
}

// Conflict reports a uniqueness violation on field.
func Conflict(field string) *Error {
	return &Error{Kind: ErrConflict, Field: field, Message: fmt.Sprintf("%s already exists", field)}
}

// Details extracts the field and field map of a classified error, if any.
func Details(err error) (field string, fields map[string]string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Field, e.Fields
	}
	return "", nil
}
