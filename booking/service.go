/*
service.go - Booking operations

Every mutating operation runs inside Store.WithTx so the overlap check and
the write commit or fail together. With a store whose WithTx is a real
serialization point (SQLite BEGIN IMMEDIATE), two concurrent requests for
the same slot serialize: the second sees the first's committed row and
fails with a ConflictError instead of double-booking.
*/
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/booking-engine/interval"
	"github.com/warp/booking-engine/org"
)

// Service exposes the booking lifecycle operations.
type Service struct {
	Store   TxStore
	Catalog Catalog
	Users   org.Directory

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// BookingRequest is the input to Request.
type BookingRequest struct {
	ResourceID    string
	RequesterCode string
	StartDate     time.Time
	EndDate       time.Time
	Window        *interval.TimeWindow
	Guests        int
	Reason        string
}

// Request books a resource. Desks and tables come back Confirmed; rooms
// come back Pending awaiting a manager decision.
func (s *Service) Request(ctx context.Context, req BookingRequest) (Reservation, error) {
	res, err := s.Catalog.GetResource(ctx, req.ResourceID)
	if err != nil {
		return Reservation{}, err
	}
	if !res.Active || res.Maintenance {
		return Reservation{}, fmt.Errorf("resource %s: %w", res.ID, ErrResourceUnavailable)
	}
	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	if res.Capacity > 0 && guests > res.Capacity {
		return Reservation{}, &CapacityError{ResourceID: res.ID, Capacity: res.Capacity, Requested: guests}
	}

	span := interval.Span{
		StartDate: interval.DateOnly(req.StartDate),
		EndDate:   interval.DateOnly(req.EndDate),
		Window:    req.Window,
	}
	if err := span.Validate(); err != nil {
		return Reservation{}, err
	}

	policy := PolicyFor(res.Kind)
	now := s.now()
	reservation := Reservation{
		ID:            uuid.NewString(),
		ResourceID:    res.ID,
		ResourceKind:  res.Kind,
		RequesterCode: req.RequesterCode,
		Span:          span,
		Guests:        guests,
		Status:        StatusConfirmed,
		Reason:        req.Reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if policy.RequiresApproval {
		reservation.Status = StatusPending
	}

	err = s.Store.WithTx(ctx, func(tx ReservationStore) error {
		detector := &OverlapDetector{Store: tx}
		if err := detector.Check(ctx, res.ID, res.Kind, req.RequesterCode, span, ""); err != nil {
			return err
		}
		return tx.Insert(ctx, reservation)
	})
	if err != nil {
		return Reservation{}, err
	}
	return reservation, nil
}

// Cancel transitions a Pending or Confirmed reservation to Cancelled.
// Allowed for the reservation's owner or an actor of manager rank or
// above. Terminal: there is no undo.
//
// Directory reads never run inside WithTx: the stores serialize the
// transaction against all other access, so a lookup from within fn would
// block on the transaction's own lock. Authorization happens first, and
// the status transition is re-checked on the fresh row inside the
// transaction.
func (s *Service) Cancel(ctx context.Context, id, actorCode, reason string) (Reservation, error) {
	current, err := s.Store.Get(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if current.RequesterCode != actorCode {
		if err := s.requireManagerRank(ctx, actorCode); err != nil {
			return Reservation{}, err
		}
	}

	var out Reservation
	err = s.Store.WithTx(ctx, func(tx ReservationStore) error {
		r, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, StatusCancelled) {
			return &StateError{ReservationID: r.ID, Status: r.Status, Action: "cancel"}
		}
		now := s.now()
		r.Status = StatusCancelled
		if reason != "" {
			r.Reason = reason
		}
		r.CancelledAt = &now
		r.UpdatedAt = now
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// Approve confirms a Pending room reservation. The overlap re-check runs
// against Confirmed bookings inside the same transaction, so of two
// competing Pendings only the first approval can succeed.
func (s *Service) Approve(ctx context.Context, id, actorCode, notes string) (Reservation, error) {
	if err := s.requireManagerRank(ctx, actorCode); err != nil {
		return Reservation{}, err
	}
	var out Reservation
	err := s.Store.WithTx(ctx, func(tx ReservationStore) error {
		r, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, StatusConfirmed) {
			return &StateError{ReservationID: r.ID, Status: r.Status, Action: "approve"}
		}
		detector := &OverlapDetector{Store: tx}
		if err := detector.Recheck(ctx, r); err != nil {
			return err
		}
		now := s.now()
		r.Status = StatusConfirmed
		r.ApprovedBy = actorCode
		r.ApprovalNotes = notes
		r.UpdatedAt = now
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// Reject declines a Pending room reservation. The reason is mandatory.
func (s *Service) Reject(ctx context.Context, id, actorCode, reason string) (Reservation, error) {
	if reason == "" {
		return Reservation{}, ErrReasonRequired
	}
	if err := s.requireManagerRank(ctx, actorCode); err != nil {
		return Reservation{}, err
	}
	var out Reservation
	err := s.Store.WithTx(ctx, func(tx ReservationStore) error {
		r, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, StatusRejected) {
			return &StateError{ReservationID: r.ID, Status: r.Status, Action: "reject"}
		}
		r.Status = StatusRejected
		r.RejectionReason = reason
		r.ApprovedBy = actorCode
		r.UpdatedAt = s.now()
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// MarkNoShow flags a Confirmed reservation whose holder never turned up.
// Manager rank required.
func (s *Service) MarkNoShow(ctx context.Context, id, actorCode string) (Reservation, error) {
	if err := s.requireManagerRank(ctx, actorCode); err != nil {
		return Reservation{}, err
	}
	var out Reservation
	err := s.Store.WithTx(ctx, func(tx ReservationStore) error {
		r, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(r.Status, StatusNoShow) {
			return &StateError{ReservationID: r.ID, Status: r.Status, Action: "mark no-show"}
		}
		r.Status = StatusNoShow
		r.UpdatedAt = s.now()
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// requireManagerRank checks that the actor holds manager rank or above.
func (s *Service) requireManagerRank(ctx context.Context, actorCode string) error {
	actor, err := s.Users.GetUser(ctx, actorCode)
	if err != nil {
		return err
	}
	if !actor.Active || (actor.Role != org.RoleManager && !actor.Role.Outranks(org.RoleManager)) {
		return fmt.Errorf("user %s: %w", actorCode, ErrNotAuthorized)
	}
	return nil
}
