/*
errors.go - Error taxonomy for the booking engine

CATEGORIES:
  ConflictError - interval overlap; never retried unchanged
  StateError    - action illegal for the record's current status
  CapacityError - guest count exceeds the resource's capacity

All structured errors unwrap to a sentinel so callers can classify with
errors.Is without depending on concrete types.
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrConflict is the sentinel under every ConflictError.
	ErrConflict = errors.New("booking conflict")

	// ErrIllegalTransition is the sentinel under every StateError.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrCapacityExceeded is the sentinel under every CapacityError.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrResourceUnavailable is returned for inactive or under-maintenance resources.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrReservationNotFound is returned when a reservation id is unknown.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrNotAuthorized is returned when the actor may not act on the reservation.
	ErrNotAuthorized = errors.New("actor not authorized")

	// ErrReasonRequired is returned when a rejection lacks its mandatory reason.
	ErrReasonRequired = errors.New("reason required")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ConflictError reports an interval overlap against an existing reservation.
type ConflictError struct {
	ResourceID string
	WithID     string
	Detail     string
}

func (e *ConflictError) Error() string {
	if e.WithID != "" {
		return fmt.Sprintf("resource %s: %s (conflicts with reservation %s)", e.ResourceID, e.Detail, e.WithID)
	}
	return fmt.Sprintf("resource %s: %s", e.ResourceID, e.Detail)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StateError reports an action that is illegal for the current status.
type StateError struct {
	ReservationID string
	Status        Status
	Action        string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("reservation %s: cannot %s while %s", e.ReservationID, e.Action, e.Status)
}

func (e *StateError) Unwrap() error { return ErrIllegalTransition }

// CapacityError reports a guest count over the resource's capacity.
type CapacityError struct {
	ResourceID string
	Capacity   int
	Requested  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("resource %s: %d guests exceeds capacity %d", e.ResourceID, e.Requested, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsConflict reports whether err is an overlap conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsClientError reports whether err stems from the caller's request rather
// than the system. Client errors map to 4xx at the API layer.
func IsClientError(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrResourceUnavailable) ||
		errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrReservationNotFound)
}
