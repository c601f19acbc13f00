// Package apperrors defines the error kinds shared by the ledger's command,
// query and storage layers. Handlers translate a Kind into an HTTP status.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindConsistency Kind = "consistency_error"
	KindInternal    Kind = "internal_error"
)

// Error carries a Kind, a caller-safe message and an optional cause.
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

func NewValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewNotFoundError(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewConflictError(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewConsistencyError reports that a unit of work could not be honoured, so the
// stored aggregates may no longer match the journal.
func NewConsistencyError(message string, cause error) error {
	return &Error{Kind: KindConsistency, Message: message, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message of the first *Error in err's chain.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

func IsValidationError(err error) bool  { return KindOf(err) == KindValidation }
func IsNotFoundError(err error) bool    { return KindOf(err) == KindNotFound }
func IsConflictError(err error) bool    { return KindOf(err) == KindConflict }
func IsConsistencyError(err error) bool { return KindOf(err) == KindConsistency }
