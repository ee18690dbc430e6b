package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindConflict
	KindValidation
	KindTransient
)

// Error is the application error type carried across service boundaries
type Error struct {
	Kind   Kind
	Msg    string
	Fields []string // populated for validation errors
	Err    error    // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing series, challenge or progress record
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Forbidden reports an authorization failure (not owner, not enrolled)
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

// Conflict reports a terminal game-rule state (completed, attempts exhausted, expired)
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Validation reports malformed teacher-supplied input
func Validation(msg string, fields ...string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

// Transient reports a retryable condition (write conflict, lock contention)
func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or 0 if err is not an application error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsForbidden reports whether err is an authorization error
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsConflict reports whether err is a terminal conflict
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsTransient reports whether err is retryable
func IsTransient(err error) bool { return KindOf(err) == KindTransient }
