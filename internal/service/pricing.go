package service

import (
	"time"

	"github.com/stayseat/booking-api/internal/model"
)

// derivePayment decides the payment and booking status of a new booking.
// An advance strictly between zero and the total is a partial payment.
// Otherwise a gateway payment id, or a desk payment covering the total,
// completes it.  Anything else waits for the gateway.
func derivePayment(total, advance int64, paymentID string) (model.PaymentStatus, model.BookingStatus) {
	switch {
	case advance > 0 && advance < total:
		return model.PaymentAdvancePaid, model.BookingConfirmed
	case paymentID != "" || (advance > 0 && advance >= total):
		return model.PaymentCompleted, model.BookingConfirmed
	}
	return model.PaymentPending, model.BookingPending
}

// quote prices the inclusive range [start, end] pro rata from a unit's
// rate, rounding up to the paisa.
func quote(rate int64, start, end time.Time) int64 {
	days := int64(end.Sub(start)/(24*time.Hour)) + 1
	return (rate*days + model.RatePeriodDays - 1) / model.RatePeriodDays
}

// collectedAmount is what was received when the booking was written.
func collectedAmount(ps model.PaymentStatus, total, advance int64) int64 {
	switch ps {
	case model.PaymentAdvancePaid:
		return advance
	case model.PaymentCompleted:
		return total
	}
	return 0
}

func receiptTypeFor(ps model.PaymentStatus) model.ReceiptType {
	if ps == model.PaymentAdvancePaid {
		return model.ReceiptAdvance
	}
	return model.ReceiptFull
}

// dueFor builds the receivable of an advance-paid booking.  The remainder
// falls due DueLeadDays before the booking ends.
func dueFor(b *model.Booking) *model.Due {
	return &model.Due{
		BookingID:   b.ID,
		UnitID:      b.UnitID,
		UserID:      b.UserID,
		TotalFee:    b.TotalPrice,
		AdvancePaid: b.AdvanceAmount,
		DueAmount:   b.TotalPrice - b.AdvanceAmount,
		DueDate:     b.EndDate.AddDate(0, 0, -model.DueLeadDays),
		Status:      model.DuePending,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.CreatedAt,
	}
}

// commission splits a gross amount by a whole percent, rounding the
// platform share down.
func commission(gross int64, pct int) (fee, net int64) {
	fee = gross * int64(pct) / 100
	return fee, gross - fee
}
