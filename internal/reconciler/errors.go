package reconciler

import (
	"errors"
	"fmt"
)

// ValidationError means the caller supplied bad input. No state was changed
// and retrying the same request will fail the same way.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError means the referenced driver or barangay does not exist.
type NotFoundError struct {
	Kind string // "driver" or "barangay"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// AlreadyQueuedError rejects an Enter event for a driver whose in_queue flag
// is already set. Duplicate scanner taps surface as this error instead of
// creating a second membership row or ledger entry.
type AlreadyQueuedError struct {
	DriverID string
	Barangay string
}

func (e *AlreadyQueuedError) Error() string {
	return fmt.Sprintf("driver %s is already queued in %s", e.DriverID, e.Barangay)
}

// NotQueuedError rejects an Exit event for a driver who is not in any queue.
type NotQueuedError struct {
	DriverID string
}

func (e *NotQueuedError) Error() string {
	return fmt.Sprintf("driver %s is not in a queue", e.DriverID)
}

// InsufficientBalanceError rejects a charge that would drive the balance
// below zero under the default policy.
type InsufficientBalanceError struct {
	DriverID  string
	Balance   int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("driver %s balance %d is below requested charge %d",
		e.DriverID, e.Balance, e.Requested)
}

// StorageError wraps a transient store failure. The enclosing transaction
// either fully applied or fully rolled back, so the event is safe to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient storage failure that the
// caller may resubmit. Conflict and validation errors are never retryable.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
