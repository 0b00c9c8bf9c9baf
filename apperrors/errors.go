// Package apperrors defines the typed failure outcomes returned by the
// reconciliation services. Callers check them with errors.Is against the
// sentinels or errors.As against the concrete types.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any write happened.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence marks a read or write rejected by the backing store.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound marks a lookup or delete whose target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBusy marks a bulk job refused because another one holds the lock.
	ErrBusy = errors.New("job already running")
)

// ValidationError represents a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PersistenceError wraps a storage failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError wraps err; a nil err stays nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) && pe.Op == op {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// NotFoundError represents a lookup whose target does not exist.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsPersistence reports whether err is a storage failure.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsNotFound reports whether err is a not found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
