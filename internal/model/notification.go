package model

import "time"

// Notification kinds recorded in the history table.
const (
	NotificationBroadcast   = "broadcast"
	NotificationVendorOffer = "vendor_offer"
	NotificationBooking     = "booking"
	NotificationDueReminder = "due_reminder"
	NotificationTest        = "test"
)

// Notification is one send operation, possibly fanned out to many users.
// OpenedCount is reserved for the delivery worker and never incremented here.
type Notification struct {
	ID          uint64    `json:"id"`
	BatchID     string    `json:"batch_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	SenderID    *uint64   `json:"sender_id,omitempty"`
	TargetCount int       `json:"target_count"`
	SentCount   int       `json:"sent_count"`
	OpenedCount int       `json:"opened_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationStats aggregates the history table.
type NotificationStats struct {
	Total       int `json:"total"`
	TotalTarget int `json:"total_target"`
	TotalSent   int `json:"total_sent"`
	TotalOpened int `json:"total_opened"`
}
