package booking

import (
	"errors"
	"fmt"
)

var ErrBookingNotFound = errors.New("booking not found")

var ErrResourceNotFound = errors.New("resource not found")

var ErrInvalidBookingState = errors.New("invalid booking state")

var ErrNotAllowed = errors.New("not allowed to perform this operation")

var ErrValidation = errors.New("invalid reservation")

var ErrConflict = errors.New("reservation conflicts with an existing booking")

var ErrTransitionInFlight = errors.New("a status change for this booking is already in progress")

var ErrNetwork = errors.New("network failure")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type ConflictError struct {
	Conflicts []Booking
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reservation overlaps %d existing booking(s)", len(e.Conflicts))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidTransitionError is returned for any status change outside the
// lifecycle table. Forbidden is set when the change exists but the actor may
// not drive it.
type InvalidTransitionError struct {
	From      Status
	To        Status
	Role      Role
	Forbidden bool
}

func (e *InvalidTransitionError) Error() string {
	if e.Forbidden {
		return fmt.Sprintf("%s may not move booking from %s to %s", e.Role, e.From, e.To)
	}
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	if target == ErrInvalidBookingState {
		return true
	}
	return e.Forbidden && target == ErrNotAllowed
}

// NetworkError wraps a transport or store failure. The action may be retried
// by the user; nothing retries it implicitly.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
