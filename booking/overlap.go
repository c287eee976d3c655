/*
overlap.go - Interval conflict detection

Detection is two-phase. A coarse date-range query pulls only reservations
whose inclusive date ranges intersect the candidate's (the store indexes
this), then both sides are expanded to absolute intervals and every pair is
tested for strict half-open overlap, short-circuiting on the first hit.

Which statuses count as occupying, and which requester-level rules apply,
comes from the kind's policy row, so the same detector serves desks, rooms,
and tables.
*/
package booking

import (
	"context"
	"fmt"

	"github.com/warp/booking-engine/interval"
)

// OverlapDetector decides whether a candidate span collides with existing
// reservations under the kind's policy.
type OverlapDetector struct {
	Store ReservationStore
}

// Check validates a candidate booking. excludeID removes one reservation
// from all comparisons, which lets updates and approval re-checks compare
// a record against everything but itself. Returns nil when the slot is
// free, a *ConflictError otherwise.
func (d *OverlapDetector) Check(ctx context.Context, resourceID string, kind ResourceKind, requesterCode string, span interval.Span, excludeID string) error {
	candidate, err := interval.Expand(span)
	if err != nil {
		return err
	}
	policy := PolicyFor(kind)

	if err := d.checkResource(ctx, resourceID, policy, span, candidate, excludeID); err != nil {
		return err
	}
	if policy.RejectDuplicatePending {
		if err := d.checkDuplicatePending(ctx, resourceID, requesterCode, span, candidate, excludeID); err != nil {
			return err
		}
	}
	if policy.MaxPerDayPerRequester > 0 || policy.ExclusiveAcrossResources {
		if err := d.checkRequester(ctx, resourceID, requesterCode, policy, span, candidate, excludeID); err != nil {
			return err
		}
	}
	return nil
}

// Recheck re-validates a reservation against Confirmed bookings only. Run
// at room approval time to catch two Pendings approved concurrently: the
// first approval confirms, the second then collides here. Competing
// Pendings are deliberately not consulted; the manager arbitrates those.
func (d *OverlapDetector) Recheck(ctx context.Context, r Reservation) error {
	candidate, err := r.Intervals()
	if err != nil {
		return err
	}
	existing, err := d.Store.ListForResource(ctx, r.ResourceID, r.Span.StartDate, r.Span.EndDate, []Status{StatusConfirmed})
	if err != nil {
		return err
	}
	return d.firstOverlap(r.ResourceID, candidate, existing, r.ID, "slot already confirmed")
}

// checkResource enforces the kind's blocking-status set on the target resource.
func (d *OverlapDetector) checkResource(ctx context.Context, resourceID string, policy KindPolicy, span interval.Span, candidate []interval.Interval, excludeID string) error {
	existing, err := d.Store.ListForResource(ctx, resourceID, span.StartDate, span.EndDate, policy.BlockingStatuses)
	if err != nil {
		return err
	}
	return d.firstOverlap(resourceID, candidate, existing, excludeID, "slot already reserved")
}

// checkDuplicatePending rejects a second overlapping Pending from the same
// requester on the same resource. Other requesters' Pendings pass through.
func (d *OverlapDetector) checkDuplicatePending(ctx context.Context, resourceID, requesterCode string, span interval.Span, candidate []interval.Interval, excludeID string) error {
	pending, err := d.Store.ListForResource(ctx, resourceID, span.StartDate, span.EndDate, []Status{StatusPending})
	if err != nil {
		return err
	}
	var own []Reservation
	for _, r := range pending {
		if r.RequesterCode == requesterCode {
			own = append(own, r)
		}
	}
	return d.firstOverlap(resourceID, candidate, own, excludeID, "duplicate pending request for this slot")
}

// checkRequester enforces the requester-scoped desk rules across all
// resources of the kind: the same-day cap and the no-two-places-at-once
// exclusivity on different resources.
func (d *OverlapDetector) checkRequester(ctx context.Context, resourceID, requesterCode string, policy KindPolicy, span interval.Span, candidate []interval.Interval, excludeID string) error {
	mine, err := d.Store.ListForRequester(ctx, requesterCode, policy.Kind, span.StartDate, span.EndDate, []Status{StatusPending, StatusConfirmed})
	if err != nil {
		return err
	}

	if policy.MaxPerDayPerRequester > 0 {
		for day := span.StartDate; !day.After(span.EndDate); day = day.AddDate(0, 0, 1) {
			covering := 0
			for _, r := range mine {
				if r.ID == excludeID {
					continue
				}
				if !day.Before(r.Span.StartDate) && !day.After(r.Span.EndDate) {
					covering++
				}
			}
			if covering >= policy.MaxPerDayPerRequester {
				return &ConflictError{
					ResourceID: resourceID,
					Detail: fmt.Sprintf("requester already holds %d %s reservations on %s",
						covering, policy.Kind, day.Format("2006-01-02")),
				}
			}
		}
	}

	if policy.ExclusiveAcrossResources {
		var elsewhere []Reservation
		for _, r := range mine {
			if r.ResourceID != resourceID {
				elsewhere = append(elsewhere, r)
			}
		}
		if err := d.firstOverlap(resourceID, candidate, elsewhere, excludeID, "requester already booked elsewhere at this time"); err != nil {
			return err
		}
	}
	return nil
}

// firstOverlap expands each stored reservation and returns a ConflictError
// for the first interval pair that strictly overlaps.
func (d *OverlapDetector) firstOverlap(resourceID string, candidate []interval.Interval, existing []Reservation, excludeID, detail string) error {
	for _, r := range existing {
		if r.ID == excludeID {
			continue
		}
		theirs, err := r.Intervals()
		if err != nil {
			// A stored reservation that cannot expand is corrupt; surface it.
			return fmt.Errorf("expanding reservation %s: %w", r.ID, err)
		}
		if interval.AnyOverlap(candidate, theirs) {
			return &ConflictError{ResourceID: resourceID, WithID: r.ID, Detail: detail}
		}
	}
	return nil
}
