/*
reconcile.go - Expiry reconciliation sweep

There is no push-based invalidation: a Confirmed reservation whose window
has fully elapsed just sits there until something notices. The reconciler
is that something. Each pass:

  Confirmed, window elapsed -> Completed
  Pending room, window elapsed -> Rejected with an auto-generated reason
  (a request must never silently evaporate)

A pass is all-or-nothing: every transition commits in one store
transaction, so a failed pass leaves nothing half-advanced and the next
scheduled pass retries cleanly. Passes are idempotent: they only move
already-elapsed records forward, so running twice (or concurrently with
bookings) changes nothing the second time.
*/
package booking

import (
	"context"
	"fmt"
	"time"
)

// AutoRejectReason is stamped on Pending reservations whose window elapsed
// before anyone decided on them.
const AutoRejectReason = "booking window elapsed before approval"

// ExpiryReconciler force-advances elapsed reservations to terminal states.
type ExpiryReconciler struct {
	Store TxStore

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (er *ExpiryReconciler) now() time.Time {
	if er.Now != nil {
		return er.Now()
	}
	return time.Now()
}

// Run executes one sweep and returns how many reservations it advanced.
func (er *ExpiryReconciler) Run(ctx context.Context) (int, error) {
	now := er.now()
	advanced := 0

	err := er.Store.WithTx(ctx, func(tx ReservationStore) error {
		active, err := tx.ListActive(ctx)
		if err != nil {
			return err
		}
		for _, r := range active {
			latest, err := r.LatestEnd()
			if err != nil {
				return fmt.Errorf("reservation %s: %w", r.ID, err)
			}
			if !latest.Before(now) {
				continue
			}

			switch r.Status {
			case StatusConfirmed:
				r.Status = StatusCompleted
			case StatusPending:
				r.Status = StatusRejected
				r.RejectionReason = AutoRejectReason
			default:
				continue
			}
			r.UpdatedAt = now
			if err := tx.Update(ctx, r); err != nil {
				return err
			}
			advanced++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return advanced, nil
}
