package service

import (
	"time"

	"github.com/stayseat/booking-api/internal/model"
)

// earlyExitCandidates returns the ids of bookings whose hold may be lifted
// by an early exit.  Only advance-paid bookings carry a dues row.
func earlyExitCandidates(bookings []model.Booking) []uint64 {
	var ids []uint64
	for _, b := range bookings {
		if b.PaymentStatus == model.PaymentAdvancePaid {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// holdsRange reports whether an overlapping booking still holds its unit
// for a query starting at start.  A tenant who left before start (the
// proportional end date of the pending dues row) no longer does.
func holdsRange(b model.Booking, exits map[uint64]time.Time, start time.Time) bool {
	if !b.IsActive() {
		return false
	}
	if b.PaymentStatus == model.PaymentAdvancePaid {
		if end, ok := exits[b.ID]; ok && end.Before(start) {
			return false
		}
	}
	return true
}

// freeUnits removes from candidates every unit held by one of bookings.
// Candidate order is preserved.
func freeUnits(candidates []model.Unit, bookings []model.Booking, exits map[uint64]time.Time, start time.Time) []model.Unit {
	held := make(map[uint64]bool, len(bookings))
	for _, b := range bookings {
		if holdsRange(b, exits, start) {
			held[b.UnitID] = true
		}
	}
	out := make([]model.Unit, 0, len(candidates))
	for _, u := range candidates {
		if !u.IsBlocked && !held[u.ID] {
			out = append(out, u)
		}
	}
	return out
}
