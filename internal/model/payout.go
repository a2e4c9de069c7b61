package model

import "time"

// Payout schedules understood by the auto-payout job.
const (
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// Payout statuses.
const (
	PayoutRequested = "requested"
	PayoutScheduled = "scheduled"
	PayoutPaid      = "paid"
)

// PayoutSettings is a vendor's withdrawal preference.
type PayoutSettings struct {
	VendorID    uint64    `json:"vendor_id"`
	AutoPayout  bool      `json:"auto_payout"`
	Schedule    string    `json:"schedule"`
	MinAmount   int64     `json:"min_amount"`
	BankAccount string    `json:"bank_account"`
	IFSC        string    `json:"ifsc"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Payout is a withdrawal of net booking revenue for a period.
type Payout struct {
	ID            uint64    `json:"id"`
	VendorID      uint64    `json:"vendor_id"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	Gross         int64     `json:"gross"`
	CommissionPct int       `json:"commission_pct"`
	Commission    int64     `json:"commission"`
	Net           int64     `json:"net"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
