package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/database"
	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/payment"
	"github.com/stayseat/booking-api/internal/queue"
	"github.com/stayseat/booking-api/internal/repository"
)

// PaymentService moves money on existing bookings of one kind: gateway
// completion, desk collection of dues, early exits and deposit refunds.
// Locks are always taken booking first, then unit, then dues.
type PaymentService struct {
	db       *sql.DB
	kind     model.Kind
	units    *repository.UnitRepo
	bookings *repository.BookingRepo
	dues     *repository.DueRepo
	receipts *repository.ReceiptRepo
	gateway  *repository.GatewayPaymentRepo
	keys     keySource
	pub      queue.Publisher
	log      *logrus.Logger
	now      func() time.Time
}

func NewPaymentService(db *sql.DB, kind model.Kind, pub queue.Publisher, log *logrus.Logger) *PaymentService {
	return &PaymentService{
		db:       db,
		kind:     kind,
		units:    repository.NewUnitRepo(db, kind),
		bookings: repository.NewBookingRepo(db, kind),
		dues:     repository.NewDueRepo(db, kind),
		receipts: repository.NewReceiptRepo(db, kind),
		gateway:  repository.NewGatewayPaymentRepo(db),
		pub:      pub,
		log:      log,
		now:      time.Now,
	}
}

func (s *PaymentService) Kind() model.Kind { return s.kind }

// keySource yields the gateway secret used to verify checkouts.
type keySource interface {
	Payment(ctx context.Context) (model.PaymentSettings, error)
}

// VerifyRequest is a gateway checkout callback.
type VerifyRequest struct {
	Actor     Actor
	BookingID uint64
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyPayment checks the checkout signature and completes the booking.
// A bad signature leaves the booking untouched and returns
// ErrPaymentUnverified.
func (s *PaymentService) VerifyPayment(ctx context.Context, req VerifyRequest) (*PaymentResult, error) {
	if s.keys == nil {
		return nil, ErrPaymentUnverified
	}
	ps, err := s.keys.Payment(ctx)
	if err != nil {
		return nil, err
	}
	if !(payment.Verifier{Secret: ps.KeySecret}).Verify(req.OrderID, req.PaymentID, req.Signature) {
		s.log.WithFields(logrus.Fields{
			"kind":       s.kind,
			"booking_id": req.BookingID,
			"order_id":   req.OrderID,
			"payment_id": req.PaymentID,
			"user_id":    req.Actor.UserID,
		}).Warn("payment signature mismatch, manual reconciliation needed")
		return nil, ErrPaymentUnverified
	}
	return s.CompletePayment(ctx, req.Actor, req.BookingID, req.OrderID, req.PaymentID)
}

// PaymentResult is returned by CompletePayment.
type PaymentResult struct {
	Booking          *model.Booking `json:"booking"`
	Receipt          *model.Receipt `json:"receipt,omitempty"`
	AlreadyCompleted bool           `json:"already_completed"`
}

// CompletePayment records a verified gateway payment for the remaining
// balance of a booking.  Repeating it on a completed booking writes
// nothing.  A payment or order already applied to any booking is rejected
// with ErrPaymentReused.
func (s *PaymentService) CompletePayment(ctx context.Context, a Actor, bookingID uint64, orderID, paymentID string) (*PaymentResult, error) {
	now := s.now().UTC()
	res := &PaymentResult{}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := authorizeBooking(ctx, tx, s.units, a, b); err != nil {
			return err
		}
		res.Booking = b
		if b.Status == model.BookingCancelled {
			return ErrBookingCancelled
		}
		if b.PaymentStatus == model.PaymentCompleted {
			res.AlreadyCompleted = true
			return nil
		}
		if err := s.gateway.ClaimTx(ctx, tx, s.kind, b.ID, orderID, paymentID, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrPaymentReused
			}
			return fmt.Errorf("claim payment: %w", err)
		}

		amount := b.TotalPrice - b.PaidAmount
		rtype := model.ReceiptFull
		if b.PaymentStatus == model.PaymentAdvancePaid {
			rtype = model.ReceiptBalance
		}
		ref := paymentID
		b.PaymentStatus = model.PaymentCompleted
		b.Status = model.BookingConfirmed
		b.PaidAmount = b.TotalPrice
		b.PaymentRef = &ref
		b.UpdatedAt = now
		if err := s.bookings.UpdatePaymentTx(ctx, tx, b, now); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if amount > 0 {
			rc := &model.Receipt{
				BookingID:     b.ID,
				UserID:        b.UserID,
				Amount:        amount,
				Method:        "online",
				TransactionID: &ref,
				Type:          rtype,
				CreatedAt:     now,
			}
			if err := s.receipts.CreateTx(ctx, tx, rc); err != nil {
				return fmt.Errorf("create receipt: %w", err)
			}
			res.Receipt = rc
		}
		if err := s.dues.SettleByBookingTx(ctx, tx, b.ID, now); err != nil {
			return fmt.Errorf("settle dues: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.AlreadyCompleted {
		return res, nil
	}
	s.log.WithFields(logrus.Fields{
		"kind":       s.kind,
		"booking_id": res.Booking.ID,
		"payment_id": paymentID,
	}).Info("payment completed")
	var amount int64
	if res.Receipt != nil {
		amount = res.Receipt.Amount
	}
	publishBookingEvent(ctx, s.pub, s.log, s.kind, queue.EventPaymentCompleted, res.Booking, amount, now)
	return res, nil
}

// CollectDueRequest is a desk collection against a dues row.
type CollectDueRequest struct {
	Actor  Actor
	DueID  uint64
	Amount int64
	Method string
}

type CollectDueResult struct {
	Due     *model.Due     `json:"due"`
	Receipt *model.Receipt `json:"receipt"`
	Booking *model.Booking `json:"booking"`
}

// CollectDue records a partial or full payment of a due.  The booking is
// completed once the due is fully paid.
func (s *PaymentService) CollectDue(ctx context.Context, req CollectDueRequest) (*CollectDueResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	peek, err := s.dues.GetByID(ctx, req.DueID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	res := &CollectDueResult{}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, peek.BookingID)
		if err != nil {
			return err
		}
		if err := authorizeParent(ctx, tx, s.units, req.Actor, b.ParentID); err != nil {
			return err
		}
		d, err := s.dues.GetForUpdateTx(ctx, tx, req.DueID)
		if err != nil {
			return err
		}
		if d.Status != model.DuePending {
			return ErrDueNotPending
		}
		if req.Amount > d.Outstanding() {
			return ErrOverCollection
		}

		d.PaidAmount += req.Amount
		if d.PaidAmount >= d.DueAmount {
			d.Status = model.DuePaid
		}
		d.UpdatedAt = now
		if err := s.dues.AddPaymentTx(ctx, tx, d.ID, d.PaidAmount, d.Status, now); err != nil {
			return fmt.Errorf("update due: %w", err)
		}

		method := req.Method
		if method == "" {
			method = "cash"
		}
		by := req.Actor.UserID
		rc := &model.Receipt{
			BookingID:   b.ID,
			UserID:      b.UserID,
			Amount:      req.Amount,
			Method:      method,
			Type:        model.ReceiptDue,
			CollectedBy: &by,
			CreatedAt:   now,
		}
		if err := s.receipts.CreateTx(ctx, tx, rc); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}

		b.PaidAmount += req.Amount
		if d.Status == model.DuePaid && b.Status != model.BookingCancelled {
			b.PaymentStatus = model.PaymentCompleted
			b.Status = model.BookingConfirmed
		}
		b.UpdatedAt = now
		if err := s.bookings.UpdatePaymentTx(ctx, tx, b, now); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		res.Due, res.Receipt, res.Booking = d, rc, b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"kind":       s.kind,
		"due_id":     res.Due.ID,
		"booking_id": res.Booking.ID,
		"amount":     req.Amount,
		"status":     res.Due.Status,
	}).Info("due collected")
	return res, nil
}

// SetProportionalEndDate records that the tenant leaves early.  Queries
// starting after the date treat the unit as free, and the unit's
// is_available flag is re-derived once the date has passed.
func (s *PaymentService) SetProportionalEndDate(ctx context.Context, a Actor, dueID uint64, end time.Time) (*model.Due, error) {
	end = model.TruncateDay(end)
	peek, err := s.dues.GetByID(ctx, dueID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var out *model.Due
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, peek.BookingID)
		if err != nil {
			return err
		}
		if err := authorizeParent(ctx, tx, s.units, a, b.ParentID); err != nil {
			return err
		}
		unit, err := s.units.GetForUpdateTx(ctx, tx, b.UnitID)
		if err != nil {
			return err
		}
		d, err := s.dues.GetForUpdateTx(ctx, tx, dueID)
		if err != nil {
			return err
		}
		if d.Status != model.DuePending {
			return ErrDueNotPending
		}
		if end.Before(b.StartDate) || end.After(b.EndDate) {
			return ErrDateOutsideBooking
		}
		if err := s.dues.SetProportionalEndTx(ctx, tx, d.ID, end, now); err != nil {
			return fmt.Errorf("set proportional end: %w", err)
		}
		d.ProportionalEndDate = &end
		d.UpdatedAt = now
		out = d
		return refreshAvailabilityTx(ctx, tx, s.units, unit, model.TruncateDay(now))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RefundResult reports a deposit refund.  AlreadyRefunded is set when the
// deposit had been refunded before; nothing is written then.
type RefundResult struct {
	Booking         *model.Booking `json:"booking"`
	AlreadyRefunded bool           `json:"already_refunded"`
}

// RefundDeposit marks the locker deposit of a booking refunded exactly
// once.
func (s *PaymentService) RefundDeposit(ctx context.Context, a Actor, bookingID uint64) (*RefundResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch {
	case a.IsAdmin():
	case a.IsVendor():
		vendorID, err := s.units.ParentVendor(ctx, b.ParentID)
		if err != nil {
			return nil, err
		}
		if vendorID != a.UserID {
			return nil, repository.ErrForbidden
		}
	default:
		return nil, repository.ErrForbidden
	}
	if b.LockerDeposit <= 0 {
		return nil, ErrNoDeposit
	}
	now := s.now().UTC()
	changed, err := s.bookings.MarkDepositRefunded(ctx, b.ID, now)
	if err != nil {
		return nil, fmt.Errorf("refund deposit: %w", err)
	}
	if !changed {
		return &RefundResult{Booking: b, AlreadyRefunded: true}, nil
	}
	b.LockerRefunded = true
	b.LockerRefundDate = &now
	b.UpdatedAt = now
	s.log.WithFields(logrus.Fields{
		"kind":       s.kind,
		"booking_id": b.ID,
		"amount":     b.LockerDeposit,
	}).Info("locker deposit refunded")
	return &RefundResult{Booking: b}, nil
}
