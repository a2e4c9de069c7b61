package model

import "time"

// BookingStatus is the persisted lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// PaymentStatus tracks how much of the booking has been paid.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentAdvancePaid PaymentStatus = "advance_paid"
	PaymentCompleted   PaymentStatus = "completed"
)

// Display statuses are derived on read and never persisted.
const (
	DisplayCancelled = "cancelled"
	DisplayPending   = "pending"
	DisplayExpired   = "expired"
	DisplayEnding    = "ending"
	DisplayActive    = "active"
)

// endingWindow is how close to its end date a booking is reported as "ending".
const endingWindow = 3 * 24 * time.Hour

// Booking is a reservation of one unit for a date range.  Dates are
// calendar days stored in UTC; both StartDate and EndDate are inclusive.
// Amounts are in minor currency units (paise).
type Booking struct {
	ID                 uint64        `json:"id"`
	Kind               Kind          `json:"kind"`
	UnitID             uint64        `json:"unit_id"`
	ParentID           uint64        `json:"parent_id"`
	UserID             uint64        `json:"user_id"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `json:"end_date"`
	DurationType       string        `json:"duration_type"`
	DurationCount      int           `json:"duration_count"`
	TotalPrice         int64         `json:"total_price"`
	AdvanceAmount      int64         `json:"advance_amount"`
	PaidAmount         int64         `json:"paid_amount"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	Status             BookingStatus `json:"status"`
	PaymentRef         *string       `json:"payment_ref,omitempty"`
	LockerDeposit      int64         `json:"locker_deposit"`
	LockerRefunded     bool          `json:"locker_refunded"`
	LockerRefundDate   *time.Time    `json:"locker_refund_date,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	TransferredAt      *time.Time    `json:"transferred_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// IsActive reports whether the booking still holds its unit.
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// DisplayStatus derives the label shown to users from the persisted status
// and the booking dates relative to now.
func (b *Booking) DisplayStatus(now time.Time) string {
	today := TruncateDay(now)
	switch {
	case b.Status == BookingCancelled:
		return DisplayCancelled
	case b.Status == BookingPending:
		return DisplayPending
	case b.EndDate.Before(today):
		return DisplayExpired
	case b.EndDate.Sub(today) <= endingWindow:
		return DisplayEnding
	}
	return DisplayActive
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Transfer records one move of a booking between units.
type Transfer struct {
	ID            uint64    `json:"id"`
	BookingID     uint64    `json:"booking_id"`
	FromUnitID    uint64    `json:"from_unit_id"`
	ToUnitID      uint64    `json:"to_unit_id"`
	FromParentID  uint64    `json:"from_parent_id"`
	ToParentID    uint64    `json:"to_parent_id"`
	TransferredBy uint64    `json:"transferred_by"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
