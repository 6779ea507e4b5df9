// Package apperror defines the error taxonomy shared by services and handlers.
//
// NotFound and InvalidOperation are terminal for the caller: they mean the
// referenced entity is already gone or the request never made sense, so
// retrying cannot help. PartialFailure means a multi-step cleanup job stopped
// short; the job journal keeps enough context to retry it, and every step is
// idempotent so re-running the whole job is always safe.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidSymbolTag = errors.New("invalid symbol tag")
	ErrPartialFailure   = errors.New("partial failure")
)

// AppError pairs a sentinel with a human-readable message and optional
// context (the offending field, or the cleanup step that failed).
type AppError struct {
	Err     error
	Message string
	Field   string
	Step    string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that the referenced entity is absent: consumed, expired,
// or already deleted.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// AlreadyExists reports a uniqueness collision (relationship pair, username).
func AlreadyExists(resource, key string) *AppError {
	return &AppError{
		Err:     ErrAlreadyExists,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// InvalidOperation reports a request that can never succeed, such as
// self-friending or accepting a request that is not pending.
func InvalidOperation(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidOperation,
		Message: message,
	}
}

// InvalidSymbolTag reports a symbol tag that did not survive normalization.
func InvalidSymbolTag(input string) *AppError {
	return &AppError{
		Err:     ErrInvalidSymbolTag,
		Message: fmt.Sprintf("symbol tag %q is not 1-5 letters", input),
		Field:   "symbol",
	}
}

// PartialFailure reports a cleanup job that did not complete every step.
// The failed steps ride along so the journal entry is actionable.
func PartialFailure(job string, steps []string) *AppError {
	return &AppError{
		Err:     ErrPartialFailure,
		Message: fmt.Sprintf("cleanup job %s: steps failed: %s", job, strings.Join(steps, ", ")),
		Step:    strings.Join(steps, ","),
	}
}
