package booking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/booking-engine/booking"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to booking.Status
		ok       bool
	}{
		{booking.StatusPending, booking.StatusConfirmed, true},
		{booking.StatusPending, booking.StatusRejected, true},
		{booking.StatusPending, booking.StatusCancelled, true},
		{booking.StatusPending, booking.StatusCompleted, false},
		{booking.StatusConfirmed, booking.StatusCancelled, true},
		{booking.StatusConfirmed, booking.StatusCompleted, true},
		{booking.StatusConfirmed, booking.StatusNoShow, true},
		{booking.StatusConfirmed, booking.StatusRejected, false},
		{booking.StatusRejected, booking.StatusConfirmed, false},
		{booking.StatusCancelled, booking.StatusPending, false},
		{booking.StatusCompleted, booking.StatusCancelled, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, booking.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, booking.StatusPending.Terminal())
	assert.False(t, booking.StatusConfirmed.Terminal())
	assert.True(t, booking.StatusRejected.Terminal())
	assert.True(t, booking.StatusCancelled.Terminal())
	assert.True(t, booking.StatusCompleted.Terminal())
	assert.True(t, booking.StatusNoShow.Terminal())
}

func TestPolicyFor_KnownKinds(t *testing.T) {
	desk := booking.PolicyFor(booking.KindDesk)
	assert.True(t, desk.Blocks(booking.StatusPending))
	assert.True(t, desk.Blocks(booking.StatusConfirmed))
	assert.False(t, desk.RequiresApproval)
	assert.Equal(t, 2, desk.MaxPerDayPerRequester)
	assert.True(t, desk.ExclusiveAcrossResources)

	room := booking.PolicyFor(booking.KindRoom)
	assert.False(t, room.Blocks(booking.StatusPending), "competing pendings must be allowed for rooms")
	assert.True(t, room.Blocks(booking.StatusConfirmed))
	assert.True(t, room.RequiresApproval)
	assert.True(t, room.RejectDuplicatePending)

	table := booking.PolicyFor(booking.KindTable)
	assert.True(t, table.Blocks(booking.StatusPending))
	assert.False(t, table.RequiresApproval)
}

func TestPolicyFor_UnknownKindIsConservative(t *testing.T) {
	p := booking.PolicyFor(booking.ResourceKind("parking_spot"))
	assert.True(t, p.Blocks(booking.StatusPending))
	assert.True(t, p.Blocks(booking.StatusConfirmed))
	assert.True(t, p.RequiresApproval)
}
