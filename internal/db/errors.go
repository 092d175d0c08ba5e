package db

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable is matched by every backend failure returned from a Store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidTransition is matched by a rejected candidate status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StorageError wraps a backend failure for a store operation
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrStorageUnavailable so callers need not know the backend
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// TransitionError reports a candidate status change the lifecycle does not allow
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move candidate from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// CanTransition reports whether a candidate may move from one status to another.
// Repeating the current status is always allowed and is a no-op.
func CanTransition(from, to string) bool {
	if from == to {
		return ValidCandidateStatus(to)
	}
	switch from {
	case CandidateStatusPending:
		return to == CandidateStatusAccepted || to == CandidateStatusRejected
	case CandidateStatusAccepted:
		return to == CandidateStatusContacted
	}
	return false
}
