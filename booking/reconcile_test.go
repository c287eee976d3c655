package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/store/memory"
)

func reconcileFixture(t *testing.T, now time.Time) (*booking.ExpiryReconciler, *booking.Service, *memory.Store) {
	t.Helper()
	svc, store := newFixture(t)
	svc.Now = func() time.Time { return now }
	rec := &booking.ExpiryReconciler{Store: store, Now: func() time.Time { return now }}
	return rec, svc, store
}

func TestReconcile_CompletesElapsedConfirmed(t *testing.T) {
	now := date(2026, time.March, 1)
	rec, svc, store := reconcileFixture(t, now)
	ctx := context.Background()

	past := booking.BookingRequest{
		ResourceID: "desk-1", RequesterCode: "emp-1",
		StartDate: date(2026, time.February, 2), EndDate: date(2026, time.February, 2),
		Window: window("09:00", "17:00"),
	}
	r, err := svc.Request(ctx, past)
	require.NoError(t, err)
	require.Equal(t, booking.StatusConfirmed, r.Status)

	advanced, err := rec.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, advanced)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, got.Status)
}

func TestReconcile_RejectsElapsedPending(t *testing.T) {
	// A room request nobody decided on must not silently evaporate: the
	// sweep rejects it with an explicit reason.
	now := date(2026, time.March, 1)
	rec, svc, store := reconcileFixture(t, now)
	ctx := context.Background()

	r, err := svc.Request(ctx, roomRequest("emp-1", date(2026, time.February, 2), "09:00", "10:00"))
	require.NoError(t, err)
	require.Equal(t, booking.StatusPending, r.Status)

	advanced, err := rec.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, advanced)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusRejected, got.Status)
	assert.Equal(t, booking.AutoRejectReason, got.RejectionReason)
}

func TestReconcile_LeavesFutureAlone(t *testing.T) {
	now := date(2026, time.March, 1)
	rec, svc, store := reconcileFixture(t, now)
	ctx := context.Background()

	r, err := svc.Request(ctx, deskRequest("emp-1", date(2026, time.April, 6)))
	require.NoError(t, err)

	advanced, err := rec.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, advanced)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
}

func TestReconcile_SecondRunIsNoop(t *testing.T) {
	now := date(2026, time.March, 1)
	rec, svc, _ := reconcileFixture(t, now)
	ctx := context.Background()

	_, err := svc.Request(ctx, deskRequest("emp-1", date(2026, time.February, 2)))
	require.NoError(t, err)
	_, err = svc.Request(ctx, roomRequest("emp-2", date(2026, time.February, 3), "09:00", "10:00"))
	require.NoError(t, err)

	advanced, err := rec.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, advanced)

	advanced, err = rec.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, advanced, "sweep must be idempotent")
}

func TestReconcile_InProgressNotCompleted(t *testing.T) {
	// A whole-day booking for today has not fully elapsed until the end
	// of the day block, so a mid-day sweep leaves it Confirmed.
	now := date(2026, time.March, 2).Add(12 * time.Hour)
	rec, svc, store := reconcileFixture(t, now)
	ctx := context.Background()

	r, err := svc.Request(ctx, deskRequest("emp-1", date(2026, time.March, 2)))
	require.NoError(t, err)

	advanced, err := rec.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, advanced)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
}
