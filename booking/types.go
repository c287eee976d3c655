/*
Package booking implements reservation lifecycle and conflict detection for
schedulable workplace resources (desks, conference rooms, cafeteria tables).

PURPOSE:
  One engine serves all three resource kinds. Kind-specific behavior (which
  statuses block a slot, whether a manager must approve, per-requester
  limits) is expressed as policy data (policy.go), never as per-kind code.

LIFECYCLE:
  Pending   -> Confirmed | Rejected | Cancelled
  Confirmed -> Cancelled | Completed
  Rejected / Cancelled / Completed / NoShow are terminal.

  Desks and tables auto-confirm on request. Rooms are created Pending and
  wait for a manager decision; the approval step re-runs overlap detection
  against Confirmed bookings to catch two Pendings approved concurrently.

KEY COMPONENTS:
  Reservation:      the persisted booking record (types.go)
  KindPolicy:       per-kind blocking/approval configuration (policy.go)
  OverlapDetector:  interval conflict checks (overlap.go)
  Service:          request/cancel/approve/reject operations (service.go)
  ExpiryReconciler: periodic sweep of elapsed bookings (reconcile.go)

SEE ALSO:
  - interval/: expansion of date+time ranges into absolute intervals
  - store/sqlite, store/memory: ReservationStore implementations
*/
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/warp/booking-engine/interval"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// transitions is the legal edge set of the lifecycle state machine.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// =============================================================================
// RESOURCES
// =============================================================================

type ResourceKind string

const (
	KindDesk  ResourceKind = "desk"
	KindRoom  ResourceKind = "room"
	KindTable ResourceKind = "table"
)

// Resource is a catalog entry for a schedulable object.
type Resource struct {
	ID          string
	Kind        ResourceKind
	Name        string
	Capacity    int
	Active      bool
	Maintenance bool
}

// ErrResourceNotFound is returned by catalog lookups for unknown resources.
var ErrResourceNotFound = errors.New("resource not found")

// Catalog looks up resources. Implemented by the stores.
type Catalog interface {
	GetResource(ctx context.Context, id string) (Resource, error)
}

// =============================================================================
// RESERVATION
// =============================================================================

// Reservation is a booking of one resource over a span. Records are never
// deleted; they only advance through statuses.
type Reservation struct {
	ID            string
	ResourceID    string
	ResourceKind  ResourceKind
	RequesterCode string

	Span   interval.Span
	Guests int

	Status          Status
	Reason          string
	RejectionReason string
	ApprovedBy      string
	ApprovalNotes   string

	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Intervals expands the reservation's stored span.
func (r *Reservation) Intervals() ([]interval.Interval, error) {
	return interval.Expand(r.Span)
}

// LatestEnd returns the end of the reservation's final interval, i.e. the
// moment after which the booking window has fully elapsed.
func (r *Reservation) LatestEnd() (time.Time, error) {
	ivs, err := r.Intervals()
	if err != nil {
		return time.Time{}, err
	}
	latest := ivs[0].End
	for _, iv := range ivs[1:] {
		if iv.End.After(latest) {
			latest = iv.End
		}
	}
	return latest, nil
}
