package worker

import (
	"errors"
	"fmt"

	"github.com/rezkam/taskguard/internal/domain"
)

// RetryableError wraps a failure worth retrying before the next scheduled run.
//
// Use for: store outages, timeouts, lease table contention.
// Don't use for: validation errors or inconsistencies that a retry cannot fix.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string { return e.Err.Error() }
func (e RetryableError) Unwrap() error { return e.Err }

// Transient wraps an error to signal it should be retried.
func Transient(err error) error {
	return RetryableError{Err: err}
}

// IsRetryable returns true if the error should be retried.
func IsRetryable(err error) bool {
	var retryable RetryableError
	return errors.As(err, &retryable)
}

// classify marks store outages as transient. Everything else waits for the next
// scheduled run.
func classify(err error) error {
	if err == nil || IsRetryable(err) {
		return err
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return Transient(err)
	}
	return err
}

// PanicError indicates a panic occurred during a run.
// Panics indicate programming errors and are never retried early.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// IsPanic returns true if the error indicates a panic occurred.
func IsPanic(err error) bool {
	var panicErr PanicError
	return errors.As(err, &panicErr)
}
