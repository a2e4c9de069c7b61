// Package service implements the booking core on top of the repositories:
// availability, the booking writer, transfers, cancellation, payments,
// deposits, payouts, notifications and reports.
package service

import "errors"

var (
	// ErrUnitNotAvailable is returned when a unit is blocked or already
	// held for an overlapping range.
	ErrUnitNotAvailable = errors.New("not available")

	// ErrConcurrentUpdate means the unit changed between the locked read
	// and the write.
	ErrConcurrentUpdate = errors.New("unit was modified concurrently, retry")

	ErrInvalidRange       = errors.New("end date must not be before start date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrOverCollection     = errors.New("amount exceeds outstanding due")
	ErrBookingCancelled   = errors.New("booking is cancelled")
	ErrSameUnit           = errors.New("destination is the current unit")
	ErrDueNotPending      = errors.New("due is not pending")
	ErrDateOutsideBooking = errors.New("date outside booking range")
	ErrNoDeposit          = errors.New("booking has no locker deposit")
	ErrNothingToPay       = errors.New("no collected revenue in period")
	ErrNoPushToken        = errors.New("no push token registered")
	ErrUnknownCategory    = errors.New("unknown settings category")
	ErrInvalidSettings    = errors.New("invalid settings")

	// ErrPaymentUnverified is the state where the gateway took the money
	// but the signature did not check out.  Nothing is written; support
	// reconciles by hand.
	ErrPaymentUnverified = errors.New("payment received but not verified, contact support")

	// ErrPaymentReused is returned when a gateway payment or order has
	// already settled a booking.
	ErrPaymentReused = errors.New("payment already applied to a booking")
)
