/*
store.go - Persistence interfaces for reservations

The engine never touches a database directly; it reads and writes through
these interfaces. Implementations live in store/sqlite (production) and
store/memory (tests, dev mode).

SERIALIZATION:
  Overlap checking is check-then-act: two concurrent requests for the same
  slot could both pass the check before either commits. Every mutating
  operation therefore runs inside WithTx, and implementations must make
  WithTx a real serialization point (BEGIN IMMEDIATE for SQLite, a mutex
  for the memory store) so concurrent requests serialize rather than race.
*/
package booking

import (
	"context"
	"time"
)

// ReservationStore persists reservations with the range queries the
// overlap detector and reconciler need.
type ReservationStore interface {
	Insert(ctx context.Context, r Reservation) error
	Get(ctx context.Context, id string) (Reservation, error)
	Update(ctx context.Context, r Reservation) error

	// ListForResource returns the resource's reservations whose inclusive
	// date range intersects [from, to] and whose status is in statuses.
	// This is the coarse filter; fine-grained interval comparison happens
	// in the detector.
	ListForResource(ctx context.Context, resourceID string, from, to time.Time, statuses []Status) ([]Reservation, error)

	// ListForRequester is ListForResource keyed by requester across all
	// resources of a kind. Needed for desk per-requester rules.
	ListForRequester(ctx context.Context, requesterCode string, kind ResourceKind, from, to time.Time, statuses []Status) ([]Reservation, error)

	// ListActive returns every reservation still in a non-terminal status.
	// The expiry reconciler scans this set.
	ListActive(ctx context.Context) ([]Reservation, error)
}

// TxStore adds transactional execution. fn's writes commit iff it returns
// nil; a non-nil error rolls everything back.
type TxStore interface {
	ReservationStore

	WithTx(ctx context.Context, fn func(ReservationStore) error) error
}
