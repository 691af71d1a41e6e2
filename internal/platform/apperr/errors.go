// Package apperr defines the error categories shared by the record services
// and the import pipeline. Callers branch on them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("constraint violation")
	ErrValidation = errors.New("validation error")
	ErrBatch      = errors.New("batch precondition failed")
)

// Error carries a category sentinel plus a human readable message.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is reports a match against the category sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound builds an error for a missing resource identified by key.
func NotFound(resource string, key interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s %v not found", resource, key)}
}

// Validation builds an error for input that fails a required-field or type check.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds an error for a unique or foreign key collision.
func Conflict(message string, cause error) *Error {
	return &Error{Kind: ErrConflict, Message: message, Cause: cause}
}

// Batch builds an error for a whole-file precondition failure.
func Batch(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrBatch, Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
