// internal/apperr/errors.go
package apperr

import (
	"errors"
	"fmt"
)

// ErrDispenseExhausted is returned when the id dispenser kept hitting write
// conflicts until its retry budget ran out.
var ErrDispenseExhausted = errors.New("id dispenser: retries exhausted")

// ValidationError rejects caller input before any state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError with a formatted message.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing tenant, competition or player.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports a state conflict: mutating a finished competition or
// creating a duplicate unique key.
type ConflictError struct {
	Message   string
	Duplicate bool
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict builds a ConflictError.
func Conflict(message string) error {
	return &ConflictError{Message: message}
}

// Duplicate builds a ConflictError for a unique key violation.
func Duplicate(message string) error {
	return &ConflictError{Message: message, Duplicate: true}
}

// LockError is returned when a tenant lock could not be acquired in time.
// Callers may retry.
type LockError struct {
	TenantID int64
	Err      error
}

func (e *LockError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to acquire lock for tenant %d", e.TenantID)
	}
	return fmt.Sprintf("failed to acquire lock for tenant %d: %v", e.TenantID, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsDuplicate reports whether err is a unique key conflict.
func IsDuplicate(err error) bool {
	var target *ConflictError
	return errors.As(err, &target) && target.Duplicate
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	var target *LockError
	return errors.As(err, &target)
}
