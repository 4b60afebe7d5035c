package shift

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActive rejects a start for a worker who is on duty.
	ErrAlreadyActive = errors.New("worker is already on duty")
	// ErrNotActive rejects an end for a worker who is off duty.
	ErrNotActive = errors.New("worker is not on duty")
	// ErrCorruptState reports a stored record that violates the duty or
	// ledger invariants. The record is left untouched.
	ErrCorruptState = errors.New("corrupt worker state")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Reason returns a short label for a transition error, used for metrics
// and API responses.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadyActive):
		return "already_active"
	case errors.Is(err, ErrNotActive):
		return "not_active"
	case errors.Is(err, ErrCorruptState):
		return "corrupt_state"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "other"
	}
}
