package lending

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrLockConflict = errors.New("could not acquire equipment lock, please try again")

	ErrAlreadyReturned = fmt.Errorf("%w: loan already returned", ErrConflict)
)

// ValidationError is raised before any lock or write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateError means the operation is not valid for the record's current status.
type StateError struct {
	Entity string
	ID     string
	Status string
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("cannot %s %s %s in status %s", e.Op, e.Entity, e.ID, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

type ForbiddenError struct {
	ActorID string
	Op      string
	LoanID  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("only the borrower or an admin can %s loan %s", e.Op, e.LoanID)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// CapacityError carries the numbers the decision was made on.
type CapacityError struct {
	EquipmentID string
	Available   int
	Requested   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough units available for equipment %s. Available: %d, requested: %d",
		e.EquipmentID, e.Available, e.Requested)
}

func (e *CapacityError) Unwrap() error { return ErrConflict }

// IsRetryable reports whether the same call may succeed if simply repeated.
func IsRetryable(err error) bool { return errors.Is(err, ErrLockConflict) }

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLockConflict):
		return "lock_conflict"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "error"
	}
}
