package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stayseat/booking-api/internal/model"
)

func TestFreeUnits(t *testing.T) {
	start := day(2026, 5, 1)
	units := []model.Unit{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4, IsBlocked: true}}

	bookings := []model.Booking{
		{ID: 10, UnitID: 1, Status: model.BookingConfirmed, PaymentStatus: model.PaymentCompleted},
		// left before the query starts
		{ID: 11, UnitID: 2, Status: model.BookingConfirmed, PaymentStatus: model.PaymentAdvancePaid},
		// left on the query start day, still holds
		{ID: 12, UnitID: 3, Status: model.BookingPending, PaymentStatus: model.PaymentAdvancePaid},
	}
	exits := map[uint64]time.Time{11: day(2026, 4, 20), 12: start}

	free := freeUnits(units, bookings, exits, start)
	if assert.Len(t, free, 1) {
		assert.Equal(t, uint64(2), free[0].ID)
	}
}

func TestHoldsRangeIgnoresExitOnCompletedBookings(t *testing.T) {
	b := model.Booking{ID: 1, Status: model.BookingConfirmed, PaymentStatus: model.PaymentCompleted}
	exits := map[uint64]time.Time{1: day(2026, 1, 1)}
	assert.True(t, holdsRange(b, exits, day(2026, 5, 1)))
}

func TestHoldsRangeCancelled(t *testing.T) {
	b := model.Booking{ID: 1, Status: model.BookingCancelled}
	assert.False(t, holdsRange(b, nil, day(2026, 5, 1)))
}

func TestEarlyExitCandidates(t *testing.T) {
	ids := earlyExitCandidates([]model.Booking{
		{ID: 1, PaymentStatus: model.PaymentCompleted},
		{ID: 2, PaymentStatus: model.PaymentAdvancePaid},
	})
	assert.Equal(t, []uint64{2}, ids)
}
