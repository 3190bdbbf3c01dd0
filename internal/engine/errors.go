package engine

import (
	"errors"
	"fmt"
)

// Error represents an expected, recoverable engine error.
//
// Engine errors include:
//   - Not found: unknown intent id on get/cancel/watch
//   - Invalid filter: malformed list parameters (bad state, bad cursor)
//
// Conditions the caller should treat as normal results are NOT errors here:
// cancelling an already-terminal intent reports the existing state as a
// no-op, and an injected failure is a normal terminal outcome.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// IntentID identifies the affected intent, when there is one.
	IntentID string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the referenced intent does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidFilter indicates malformed list/query parameters.
	ErrCodeInvalidFilter ErrorCode = "INVALID_FILTER"

	// ErrCodeDuplicateIntent indicates a caller-supplied id collided with
	// an existing intent.
	ErrCodeDuplicateIntent ErrorCode = "DUPLICATE_INTENT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.IntentID != "" {
		return fmt.Sprintf("%s: %s (intent=%s)", e.Code, e.Message, e.IntentID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFoundError creates an Error for an unknown intent id.
func NewNotFoundError(intentID string) *Error {
	return &Error{
		Code:     ErrCodeNotFound,
		Message:  "intent not found",
		IntentID: intentID,
	}
}

// NewInvalidFilterError creates an Error for malformed query parameters.
func NewInvalidFilterError(msg string) *Error {
	return &Error{
		Code:    ErrCodeInvalidFilter,
		Message: msg,
	}
}

// NewDuplicateIntentError creates an Error for an id collision on create.
func NewDuplicateIntentError(intentID string) *Error {
	return &Error{
		Code:     ErrCodeDuplicateIntent,
		Message:  "intent id already exists",
		IntentID: intentID,
	}
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeNotFound
	}
	return false
}

// IsInvalidFilter returns true if the error is an invalid-filter error.
// Uses errors.As to handle wrapped errors.
func IsInvalidFilter(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeInvalidFilter
	}
	return false
}
