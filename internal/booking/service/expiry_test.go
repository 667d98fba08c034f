package service

import (
	"context"
	"testing"
	"time"

	"cinebook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpire_ReleasesUnpaidBookingThenSeatIsBookable(t *testing.T) {
	h := newHarness()
	res := createBooking(t, h, "u1", "A1")
	task := h.tasks.get(res.Booking.ID)
	require.NotNil(t, task)

	h.clock.Advance(10 * time.Minute)
	require.NoError(t, h.expiry.Expire(context.Background(), task))

	assert.Empty(t, h.shows.marker(testShowID, "A1"))
	assert.Equal(t, 0, h.shows.occupiedCount(testShowID))
	_, err := h.bookings.FindByID(context.Background(), res.Booking.ID)
	assert.Error(t, err, "expired booking is deleted")
	assert.Equal(t, []string{"cs_" + res.Booking.ID}, h.gateway.expired)
	assert.Contains(t, h.events.states, SeatStateFree)

	again := createBooking(t, h, "u2", "A1")
	assert.Equal(t, "LOCKED:"+again.Booking.ID, h.shows.marker(testShowID, "A1"))
}

func TestExpire_PaidBookingIsLeftAlone(t *testing.T) {
	h := newHarness()
	res := createBooking(t, h, "u1", "A1")
	task := h.tasks.get(res.Booking.ID)
	require.NoError(t, h.settlement.Settle(context.Background(), settleEvent(res.Booking.ID)))

	h.clock.Advance(10 * time.Minute)
	require.NoError(t, h.expiry.Expire(context.Background(), task))

	b, err := h.bookings.FindByID(context.Background(), res.Booking.ID)
	require.NoError(t, err)
	assert.True(t, b.IsPaid)
	assert.Equal(t, "u1", h.shows.marker(testShowID, "A1"))
	assert.Equal(t, 1, h.shows.occupiedCount(testShowID))
	assert.Empty(t, h.gateway.expired)
}

func TestExpire_IsIdempotent(t *testing.T) {
	h := newHarness()
	res := createBooking(t, h, "u1", "A1", "A2")
	task := h.tasks.get(res.Booking.ID)

	require.NoError(t, h.expiry.Expire(context.Background(), task))
	require.NoError(t, h.expiry.Expire(context.Background(), task))

	assert.Equal(t, 0, h.shows.occupiedCount(testShowID))
	assert.Empty(t, h.shows.marker(testShowID, "A1"))
}

func TestExpire_NeverReleasesAnotherBookingsLock(t *testing.T) {
	h := newHarness()
	first := createBooking(t, h, "u1", "A1")
	task := h.tasks.get(first.Booking.ID)
	require.NoError(t, h.expiry.Expire(context.Background(), task))

	second := createBooking(t, h, "u2", "A1")

	// The first booking's timer fires again late.
	require.NoError(t, h.expiry.Expire(context.Background(), task))

	assert.Equal(t, "LOCKED:"+second.Booking.ID, h.shows.marker(testShowID, "A1"))
	assert.Equal(t, 1, h.shows.occupiedCount(testShowID))
}

func TestExpire_SweepsLocksLeftByInterruptedRun(t *testing.T) {
	h := newHarness()
	res := createBooking(t, h, "u1", "A1", "A2")
	task := h.tasks.get(res.Booking.ID)

	// A previous run deleted the booking and crashed before releasing seats.
	ok, err := h.bookings.DeleteUnpaid(context.Background(), res.Booking.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, h.expiry.Expire(context.Background(), task))

	assert.Empty(t, h.shows.marker(testShowID, "A1"))
	assert.Empty(t, h.shows.marker(testShowID, "A2"))
	assert.Equal(t, 0, h.shows.occupiedCount(testShowID))
}

func TestExpire_CancelledBookingIsKept(t *testing.T) {
	h := newHarness()
	res := createBooking(t, h, "u1", "A1")
	task := h.tasks.get(res.Booking.ID)
	_, err := h.cancellation.CancelBooking(context.Background(), user("u1"), res.Booking.ID)
	require.NoError(t, err)

	require.NoError(t, h.expiry.Expire(context.Background(), task))

	b, err := h.bookings.FindByID(context.Background(), res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
}
