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
	"github.com/stayseat/booking-api/internal/queue"
	"github.com/stayseat/booking-api/internal/repository"
)

// Inventory is the booking core of one inventory kind.  Cabins (seats) and
// hostel rooms (beds) expose the same operations.
type Inventory interface {
	Kind() model.Kind
	ListUnits(ctx context.Context, parentID uint64) ([]model.Unit, error)
	CheckAvailability(ctx context.Context, parentID uint64, start, end time.Time) ([]model.Unit, error)
	Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error)
	Release(ctx context.Context, req CancelRequest) (*CancelResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*model.Booking, error)
	Get(ctx context.Context, a Actor, bookingID uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	Receipts(ctx context.Context, a Actor, bookingID uint64) ([]model.Receipt, error)
	SetBlocked(ctx context.Context, a Actor, unitID uint64, blocked bool) (*model.Unit, error)
}

// ReserveRequest describes a new booking.  Vendors and admins book at the
// desk on behalf of UserID and may record a payment taken there.  For
// students the booking is for the caller, priced from the unit's rate and
// left pending until a verified gateway payment; their payment fields are
// ignored.
type ReserveRequest struct {
	Actor         Actor
	UnitID        uint64
	UserID        uint64
	StartDate     time.Time
	EndDate       time.Time
	DurationType  string
	DurationCount int
	TotalPrice    int64
	AdvanceAmount int64
	LockerDeposit int64
	PaymentMethod string
	PaymentID     string
}

// ReserveResult is everything written by a reservation.  Receipt is nil
// when nothing was paid and Due is nil unless the booking is advance paid.
type ReserveResult struct {
	Booking *model.Booking `json:"booking"`
	Receipt *model.Receipt `json:"receipt,omitempty"`
	Due     *model.Due     `json:"due,omitempty"`
}

type CancelRequest struct {
	Actor     Actor
	BookingID uint64
	Reason    string
}

// CancelResult reports the outcome of a cancellation.  AlreadyCancelled
// is set when the booking was cancelled before and nothing was written.
type CancelResult struct {
	Booking          *model.Booking `json:"booking"`
	AlreadyCancelled bool           `json:"already_cancelled"`
	DuesCancelled    int64          `json:"dues_cancelled"`
}

type TransferRequest struct {
	Actor     Actor
	BookingID uint64
	ToUnitID  uint64
	Reason    string
}

// inventory implements Inventory over MySQL.  Every mutation runs in one
// transaction that locks the touched unit rows.
type inventory struct {
	db        *sql.DB
	kind      model.Kind
	units     *repository.UnitRepo
	bookings  *repository.BookingRepo
	dues      *repository.DueRepo
	receipts  *repository.ReceiptRepo
	transfers *repository.TransferRepo
	pub       queue.Publisher
	log       *logrus.Logger
	now       func() time.Time
}

// NewInventory wires the repositories of a kind.
func NewInventory(db *sql.DB, kind model.Kind, pub queue.Publisher, log *logrus.Logger) Inventory {
	return &inventory{
		db:        db,
		kind:      kind,
		units:     repository.NewUnitRepo(db, kind),
		bookings:  repository.NewBookingRepo(db, kind),
		dues:      repository.NewDueRepo(db, kind),
		receipts:  repository.NewReceiptRepo(db, kind),
		transfers: repository.NewTransferRepo(db, kind),
		pub:       pub,
		log:       log,
		now:       time.Now,
	}
}

func (s *inventory) Kind() model.Kind { return s.kind }

func (s *inventory) ListUnits(ctx context.Context, parentID uint64) ([]model.Unit, error) {
	return s.units.ListByParent(ctx, parentID)
}

// CheckAvailability lists the units of a parent free for [start, end].
// Any query failure aborts the whole check.
func (s *inventory) CheckAvailability(ctx context.Context, parentID uint64, start, end time.Time) ([]model.Unit, error) {
	start, end = model.TruncateDay(start), model.TruncateDay(end)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	var free []model.Unit
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		candidates, err := s.units.ListUnblockedTx(ctx, tx, parentID)
		if err != nil {
			return fmt.Errorf("list units: %w", err)
		}
		overlapping, err := s.bookings.OverlappingByParentTx(ctx, tx, parentID, start, end)
		if err != nil {
			return fmt.Errorf("overlapping bookings: %w", err)
		}
		exits, err := s.dues.EarlyExitsTx(ctx, tx, earlyExitCandidates(overlapping))
		if err != nil {
			return fmt.Errorf("early exits: %w", err)
		}
		free = freeUnits(candidates, overlapping, exits, start)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return free, nil
}

// unitHeldTx reports whether unitID is held for [start, end] by a booking
// other than excludeID.
func (s *inventory) unitHeldTx(ctx context.Context, tx *sql.Tx, unitID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	overlapping, err := s.bookings.OverlappingByUnitTx(ctx, tx, unitID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("overlapping bookings: %w", err)
	}
	if len(overlapping) == 0 {
		return false, nil
	}
	exits, err := s.dues.EarlyExitsTx(ctx, tx, earlyExitCandidates(overlapping))
	if err != nil {
		return false, fmt.Errorf("early exits: %w", err)
	}
	for _, b := range overlapping {
		if holdsRange(b, exits, start) {
			return true, nil
		}
	}
	return false, nil
}

// refreshAvailabilityTx re-derives the is_available mirror of a locked
// unit: available iff no pending or confirmed booking still holds it today
// or later.  A tenant whose early exit date has passed no longer holds it.
func refreshAvailabilityTx(ctx context.Context, tx *sql.Tx, units *repository.UnitRepo, u *model.Unit, today time.Time) error {
	holding, err := units.HasHoldingBookingTx(ctx, tx, u.ID, today)
	if err != nil {
		return fmt.Errorf("holding bookings: %w", err)
	}
	want := !holding
	if u.IsAvailable == want {
		return nil
	}
	if err := units.SetAvailabilityTx(ctx, tx, u.ID, want, u.Version); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("set availability: %w", err)
	}
	u.IsAvailable = want
	u.Version++
	return nil
}

// Reserve writes a booking together with its receipt and dues row.
func (s *inventory) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	start, end := model.TruncateDay(req.StartDate), model.TruncateDay(req.EndDate)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	self := req.Actor.Role == model.RoleStudent
	if self {
		// Students pay through the gateway only, at the unit's rate.
		req.UserID, req.AdvanceAmount, req.PaymentID, req.PaymentMethod = 0, 0, "", ""
	}
	if req.TotalPrice < 0 || req.AdvanceAmount < 0 || req.AdvanceAmount > req.TotalPrice || req.LockerDeposit < 0 {
		return nil, ErrInvalidAmount
	}
	userID := req.UserID
	if userID == 0 {
		userID = req.Actor.UserID
	}

	now := s.now().UTC()
	res := &ReserveResult{}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		unit, err := s.units.GetForUpdateTx(ctx, tx, req.UnitID)
		if err != nil {
			return err
		}
		total := req.TotalPrice
		if self {
			total = quote(unit.Price, start, end)
		} else if err := authorizeParent(ctx, tx, s.units, req.Actor, unit.ParentID); err != nil {
			return err
		}
		if unit.IsBlocked {
			return ErrUnitNotAvailable
		}
		ps, status := derivePayment(total, req.AdvanceAmount, req.PaymentID)
		held, err := s.unitHeldTx(ctx, tx, unit.ID, start, end, 0)
		if err != nil {
			return err
		}
		if held {
			return ErrUnitNotAvailable
		}

		b := &model.Booking{
			UnitID:        unit.ID,
			ParentID:      unit.ParentID,
			UserID:        userID,
			StartDate:     start,
			EndDate:       end,
			DurationType:  req.DurationType,
			DurationCount: req.DurationCount,
			TotalPrice:    total,
			AdvanceAmount: req.AdvanceAmount,
			PaidAmount:    collectedAmount(ps, total, req.AdvanceAmount),
			PaymentStatus: ps,
			Status:        status,
			LockerDeposit: req.LockerDeposit,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if req.PaymentID != "" {
			ref := req.PaymentID
			b.PaymentRef = &ref
		}
		if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		res.Booking = b

		if b.PaidAmount > 0 {
			rc := &model.Receipt{
				BookingID: b.ID,
				UserID:    b.UserID,
				Amount:    b.PaidAmount,
				Method:    paymentMethod(req.PaymentMethod, req.PaymentID),
				Type:      receiptTypeFor(ps),
				CreatedAt: now,
			}
			if req.PaymentID != "" {
				rc.TransactionID = b.PaymentRef
			}
			by := req.Actor.UserID
			rc.CollectedBy = &by
			if err := s.receipts.CreateTx(ctx, tx, rc); err != nil {
				return fmt.Errorf("create receipt: %w", err)
			}
			res.Receipt = rc
		}

		if ps == model.PaymentAdvancePaid {
			d := dueFor(b)
			if err := s.dues.CreateTx(ctx, tx, d); err != nil {
				return fmt.Errorf("create due: %w", err)
			}
			res.Due = d
		}

		return refreshAvailabilityTx(ctx, tx, s.units, unit, model.TruncateDay(now))
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"kind":           s.kind,
		"booking_id":     res.Booking.ID,
		"unit_id":        res.Booking.UnitID,
		"user_id":        res.Booking.UserID,
		"payment_status": res.Booking.PaymentStatus,
	}).Info("booking created")
	s.publish(ctx, queue.EventBookingCreated, res.Booking, res.Booking.PaidAmount)
	return res, nil
}

func paymentMethod(method, paymentID string) string {
	switch {
	case method != "":
		return method
	case paymentID != "":
		return "online"
	}
	return "cash"
}

// Release cancels a booking, its pending dues, and frees the unit when
// nothing else holds it.  Cancelling twice is a no-op.
func (s *inventory) Release(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	now := s.now().UTC()
	res := &CancelResult{}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if err := authorizeBooking(ctx, tx, s.units, req.Actor, b); err != nil {
			return err
		}
		res.Booking = b
		if b.Status == model.BookingCancelled {
			res.AlreadyCancelled = true
			return nil
		}

		unit, err := s.units.GetForUpdateTx(ctx, tx, b.UnitID)
		if err != nil {
			return err
		}
		var reason *string
		if req.Reason != "" {
			reason = &req.Reason
		}
		if err := s.bookings.CancelTx(ctx, tx, b.ID, reason, now); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		n, err := s.dues.CancelPendingByBookingTx(ctx, tx, b.ID, now)
		if err != nil {
			return fmt.Errorf("cancel dues: %w", err)
		}
		res.DuesCancelled = n

		b.Status = model.BookingCancelled
		b.CancelledAt = &now
		b.CancellationReason = reason
		b.UpdatedAt = now
		return refreshAvailabilityTx(ctx, tx, s.units, unit, model.TruncateDay(now))
	})
	if err != nil {
		return nil, err
	}
	if res.AlreadyCancelled {
		return res, nil
	}

	s.log.WithFields(logrus.Fields{
		"kind":       s.kind,
		"booking_id": res.Booking.ID,
		"actor_id":   req.Actor.UserID,
	}).Info("booking cancelled")
	s.publish(ctx, queue.EventBookingCancelled, res.Booking, 0)
	return res, nil
}

// Transfer moves an active booking to another unit of the same kind.
func (s *inventory) Transfer(ctx context.Context, req TransferRequest) (*model.Booking, error) {
	now := s.now().UTC()
	var moved *model.Booking
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.bookings.GetForUpdateTx(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if !b.IsActive() {
			return ErrBookingCancelled
		}
		if b.UnitID == req.ToUnitID {
			return ErrSameUnit
		}

		// Lock both units in id order.
		first, second := b.UnitID, req.ToUnitID
		if second < first {
			first, second = second, first
		}
		locked := make(map[uint64]*model.Unit, 2)
		for _, id := range []uint64{first, second} {
			u, err := s.units.GetForUpdateTx(ctx, tx, id)
			if err != nil {
				return err
			}
			locked[id] = u
		}
		from, to := locked[b.UnitID], locked[req.ToUnitID]

		if err := authorizeParent(ctx, tx, s.units, req.Actor, from.ParentID); err != nil {
			return err
		}
		if to.ParentID != from.ParentID {
			if err := authorizeParent(ctx, tx, s.units, req.Actor, to.ParentID); err != nil {
				return err
			}
		}
		if to.IsBlocked {
			return ErrUnitNotAvailable
		}
		held, err := s.unitHeldTx(ctx, tx, to.ID, b.StartDate, b.EndDate, b.ID)
		if err != nil {
			return err
		}
		if held {
			return ErrUnitNotAvailable
		}

		if err := s.bookings.MoveTx(ctx, tx, b.ID, to.ID, to.ParentID, now); err != nil {
			return fmt.Errorf("move booking: %w", err)
		}
		if err := s.dues.MoveUnitTx(ctx, tx, b.ID, to.ID, now); err != nil {
			return fmt.Errorf("move dues: %w", err)
		}
		tr := &model.Transfer{
			BookingID:     b.ID,
			FromUnitID:    from.ID,
			ToUnitID:      to.ID,
			FromParentID:  from.ParentID,
			ToParentID:    to.ParentID,
			TransferredBy: req.Actor.UserID,
			Reason:        req.Reason,
			CreatedAt:     now,
		}
		if err := s.transfers.CreateTx(ctx, tx, tr); err != nil {
			return fmt.Errorf("record transfer: %w", err)
		}

		today := model.TruncateDay(now)
		if err := refreshAvailabilityTx(ctx, tx, s.units, locked[first], today); err != nil {
			return err
		}
		if err := refreshAvailabilityTx(ctx, tx, s.units, locked[second], today); err != nil {
			return err
		}

		b.UnitID, b.ParentID = to.ID, to.ParentID
		b.TransferredAt = &now
		b.UpdatedAt = now
		moved = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"kind":       s.kind,
		"booking_id": moved.ID,
		"to_unit_id": moved.UnitID,
		"actor_id":   req.Actor.UserID,
	}).Info("booking transferred")
	s.publish(ctx, queue.EventBookingTransferred, moved, 0)
	return moved, nil
}

// Get returns a booking visible to the actor.
func (s *inventory) Get(ctx context.Context, a Actor, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if a.Role == model.RoleStudent {
		if b.UserID != a.UserID {
			return nil, repository.ErrForbidden
		}
		return b, nil
	}
	if !a.IsAdmin() {
		vendorID, err := s.units.ParentVendor(ctx, b.ParentID)
		if err != nil {
			return nil, err
		}
		if vendorID != a.UserID {
			return nil, repository.ErrForbidden
		}
	}
	return b, nil
}

func (s *inventory) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// Receipts lists the receipts of a booking to anyone allowed to view it.
func (s *inventory) Receipts(ctx context.Context, a Actor, bookingID uint64) ([]model.Receipt, error) {
	if _, err := s.Get(ctx, a, bookingID); err != nil {
		return nil, err
	}
	return s.receipts.ListByBooking(ctx, bookingID)
}

// SetBlocked takes a unit out of (or back into) circulation.  Blocked
// units never show as free, but existing bookings on them stand.
func (s *inventory) SetBlocked(ctx context.Context, a Actor, unitID uint64, blocked bool) (*model.Unit, error) {
	var out *model.Unit
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		u, err := s.units.GetForUpdateTx(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if err := authorizeParent(ctx, tx, s.units, a, u.ParentID); err != nil {
			return err
		}
		if u.IsBlocked == blocked {
			out = u
			return nil
		}
		if err := s.units.SetBlockedTx(ctx, tx, u.ID, blocked, u.Version); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return ErrConcurrentUpdate
			}
			return fmt.Errorf("set blocked: %w", err)
		}
		u.IsBlocked = blocked
		u.Version++
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"kind": s.kind, "unit_id": unitID, "blocked": blocked, "by": a.UserID}).Info("unit block flag set")
	return out, nil
}

// publish emits a booking event after commit.  Broker failures are logged
// and never fail the operation.
func (s *inventory) publish(ctx context.Context, typ string, b *model.Booking, amount int64) {
	publishBookingEvent(ctx, s.pub, s.log, s.kind, typ, b, amount, s.now())
}

func publishBookingEvent(ctx context.Context, pub queue.Publisher, log *logrus.Logger, kind model.Kind, typ string, b *model.Booking, amount int64, now time.Time) {
	ev := queue.BookingEvent{
		Type:       typ,
		Kind:       string(kind),
		BookingID:  b.ID,
		UserID:     b.UserID,
		UnitID:     b.UnitID,
		ParentID:   b.ParentID,
		StartDate:  b.StartDate.Format(time.DateOnly),
		EndDate:    b.EndDate.Format(time.DateOnly),
		Amount:     amount,
		OccurredAt: now.UTC(),
	}
	if err := pub.Publish(ctx, queue.BookingEventsQueue, ev); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"type": typ, "booking_id": b.ID}).Warn("publish booking event failed")
	}
}
