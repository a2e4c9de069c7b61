package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stayseat/booking-api/internal/model"
)

func TestDerivePayment(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		advance   int64
		paymentID string
		ps        model.PaymentStatus
		status    model.BookingStatus
	}{
		{"partial advance", 1000, 400, "", model.PaymentAdvancePaid, model.BookingConfirmed},
		{"partial advance online", 1000, 400, "pay_1", model.PaymentAdvancePaid, model.BookingConfirmed},
		{"gateway full", 1000, 0, "pay_1", model.PaymentCompleted, model.BookingConfirmed},
		{"desk full", 1000, 1000, "", model.PaymentCompleted, model.BookingConfirmed},
		{"awaiting gateway", 1000, 0, "", model.PaymentPending, model.BookingPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, status := derivePayment(tt.total, tt.advance, tt.paymentID)
			assert.Equal(t, tt.ps, ps)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestCollectedAmount(t *testing.T) {
	assert.Equal(t, int64(400), collectedAmount(model.PaymentAdvancePaid, 1000, 400))
	assert.Equal(t, int64(1000), collectedAmount(model.PaymentCompleted, 1000, 0))
	assert.Zero(t, collectedAmount(model.PaymentPending, 1000, 0))
}

func TestDueFor(t *testing.T) {
	b := &model.Booking{
		ID: 1, UnitID: 2, UserID: 3,
		EndDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		TotalPrice: 1000, AdvanceAmount: 400,
	}
	d := dueFor(b)
	assert.Equal(t, int64(600), d.DueAmount)
	assert.Equal(t, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), d.DueDate)
	assert.Equal(t, model.DuePending, d.Status)
}

func TestCommissionRoundsDown(t *testing.T) {
	fee, net := commission(12345, 10)
	assert.Equal(t, int64(1234), fee)
	assert.Equal(t, int64(11111), net)

	fee, net = commission(500, 0)
	assert.Zero(t, fee)
	assert.Equal(t, int64(500), net)
}

func TestPaymentMethod(t *testing.T) {
	assert.Equal(t, "upi", paymentMethod("upi", "pay_1"))
	assert.Equal(t, "online", paymentMethod("", "pay_1"))
	assert.Equal(t, "cash", paymentMethod("", ""))
}

func TestQuote(t *testing.T) {
	mar := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, int64(90000), quote(90000, mar(1), mar(30)))
	assert.Equal(t, int64(93000), quote(90000, mar(1), mar(31)))
	assert.Equal(t, int64(3000), quote(90000, mar(5), mar(5)))
	assert.Equal(t, int64(34), quote(1000, mar(1), mar(1)))
	assert.Zero(t, quote(0, mar(1), mar(31)))
}
