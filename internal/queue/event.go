// Package queue defines the messages exchanged over RabbitMQ and the
// publisher and consumer that move them.
package queue

import "time"

// Queue names.  Both are declared durable.
const (
	BookingEventsQueue    = "booking.events"
	PushNotificationQueue = "notifications.push"
)

// Booking event types.
const (
	EventBookingCreated     = "booking.created"
	EventBookingCancelled   = "booking.cancelled"
	EventBookingTransferred = "booking.transferred"
	EventPaymentCompleted   = "booking.payment_completed"
)

// BookingEvent is published after a booking transaction commits.  It
// carries enough for consumers to notify the student without reading the
// database.
type BookingEvent struct {
	Type       string    `json:"type"`
	Kind       string    `json:"kind"`
	BookingID  uint64    `json:"booking_id"`
	UserID     uint64    `json:"user_id"`
	UnitID     uint64    `json:"unit_id"`
	ParentID   uint64    `json:"parent_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PushMessage is one device notification handed to the external FCM
// worker.
type PushMessage struct {
	BatchID string            `json:"batch_id"`
	UserID  uint64            `json:"user_id"`
	Token   string            `json:"token"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
}
