package model

import "time"

// DueStatus is the state of a receivable.
type DueStatus string

const (
	DuePending   DueStatus = "pending"
	DuePaid      DueStatus = "paid"
	DueCancelled DueStatus = "cancelled"
)

// DueLeadDays is how many days before the booking ends the remainder falls due.
const DueLeadDays = 3

// Due is money still owed on an advance-paid booking.  When a tenant
// leaves early, ProportionalEndDate holds the prorated last day; the unit
// is treated as free for queries starting after it.
type Due struct {
	ID                  uint64     `json:"id"`
	BookingID           uint64     `json:"booking_id"`
	UnitID              uint64     `json:"unit_id"`
	UserID              uint64     `json:"user_id"`
	TotalFee            int64      `json:"total_fee"`
	AdvancePaid         int64      `json:"advance_paid"`
	DueAmount           int64      `json:"due_amount"`
	PaidAmount          int64      `json:"paid_amount"`
	DueDate             time.Time  `json:"due_date"`
	ProportionalEndDate *time.Time `json:"proportional_end_date,omitempty"`
	Status              DueStatus  `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Outstanding returns what is left to collect.
func (d *Due) Outstanding() int64 {
	if d.PaidAmount >= d.DueAmount {
		return 0
	}
	return d.DueAmount - d.PaidAmount
}
