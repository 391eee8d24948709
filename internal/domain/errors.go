package domain

import (
	"errors"
	"fmt"
)

// Domain errors returned by the resolver, the transition engine and repository implementations.

var (
	// ErrValidation indicates malformed identity fields or task attributes.
	// Raised before any store call is made.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the requested task does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrStoreUnavailable wraps failures reported by the underlying store.
	// The caller owns the retry policy.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInternalInconsistency indicates a resolution pass could not establish
	// exactly one canonical survivor for a duplicate group.
	ErrInternalInconsistency = errors.New("internal inconsistency")

	// ErrInvalidTransition indicates a status transition whose precondition does not hold.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")

	// ErrEmptyUpdateMask indicates a patch without any field to update.
	ErrEmptyUpdateMask = errors.New("update mask cannot be empty")

	// ErrUnknownField indicates an unknown field in an update mask.
	ErrUnknownField = errors.New("unknown field in update mask")
)

// ValidationError names the field that failed validation.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StoreError wraps a backend failure so that both ErrStoreUnavailable and the
// driver error stay in the chain.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
