package model

import "time"

// ReceiptType describes why money was collected.
type ReceiptType string

const (
	ReceiptAdvance ReceiptType = "advance"
	ReceiptFull    ReceiptType = "full"
	ReceiptBalance ReceiptType = "balance"
	ReceiptDue     ReceiptType = "due_collection"
)

// Receipt is an append-only record of a payment against a booking.
type Receipt struct {
	ID            uint64      `json:"id"`
	ReceiptNo     string      `json:"receipt_no"`
	BookingID     uint64      `json:"booking_id"`
	UserID        uint64      `json:"user_id"`
	Amount        int64       `json:"amount"`
	Method        string      `json:"method"`
	TransactionID *string     `json:"transaction_id,omitempty"`
	Type          ReceiptType `json:"type"`
	CollectedBy   *uint64     `json:"collected_by,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
