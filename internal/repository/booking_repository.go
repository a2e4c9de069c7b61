package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stayseat/booking-api/internal/model"
)

// BookingRepo provides persistence for bookings of one inventory kind.
// Bookings are never hard-deleted; cancellation is a status change.
type BookingRepo struct {
	db *sql.DB
	t  Tables
}

// NewBookingRepo returns a BookingRepo for the given kind.
func NewBookingRepo(db *sql.DB, kind model.Kind) *BookingRepo {
	return &BookingRepo{db: db, t: TablesFor(kind)}
}

var bookingFields = []string{
	"id", "%unit%", "%parent%", "user_id", "start_date", "end_date", "duration_type", "duration_count",
	"total_price", "advance_amount", "paid_amount", "payment_status", "status", "payment_ref",
	"locker_deposit", "locker_refunded", "locker_refund_date", "cancellation_reason",
	"cancelled_at", "transferred_at", "created_at", "updated_at",
}

// columns renders the select list, optionally qualified with a table alias.
func (r *BookingRepo) columns(alias string) string {
	out := make([]string, len(bookingFields))
	for i, f := range bookingFields {
		switch f {
		case "%unit%":
			f = r.t.UnitCol
		case "%parent%":
			f = r.t.ParentCol
		}
		if alias != "" {
			f = alias + "." + f
		}
		out[i] = f
	}
	return strings.Join(out, ", ")
}

func (r *BookingRepo) scan(sc interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b                                    model.Booking
		paymentRef, reason                   sql.NullString
		refundDate, cancelledAt, transferred sql.NullTime
	)
	err := sc.Scan(
		&b.ID, &b.UnitID, &b.ParentID, &b.UserID, &b.StartDate, &b.EndDate, &b.DurationType, &b.DurationCount,
		&b.TotalPrice, &b.AdvanceAmount, &b.PaidAmount, &b.PaymentStatus, &b.Status, &paymentRef,
		&b.LockerDeposit, &b.LockerRefunded, &refundDate, &reason,
		&cancelledAt, &transferred, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return b, err
	}
	b.Kind = r.t.Kind
	b.StartDate = model.TruncateDay(b.StartDate)
	b.EndDate = model.TruncateDay(b.EndDate)
	b.PaymentRef = stringPtr(paymentRef)
	b.CancellationReason = stringPtr(reason)
	b.LockerRefundDate = timePtr(refundDate)
	b.CancelledAt = timePtr(cancelledAt)
	b.TransferredAt = timePtr(transferred)
	return b, nil
}

func (r *BookingRepo) list(ctx context.Context, q queryer, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTx inserts a booking and populates its generated ID.  CreatedAt
// and UpdatedAt must be set by the caller.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	q := fmt.Sprintf(`INSERT INTO %s (%s, %s, user_id, start_date, end_date, duration_type, duration_count,
	                  total_price, advance_amount, paid_amount, payment_status, status, payment_ref, locker_deposit,
	                  created_at, updated_at)
	                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.t.Bookings, r.t.UnitCol, r.t.ParentCol)
	res, err := tx.ExecContext(ctx, q,
		b.UnitID, b.ParentID, b.UserID, b.StartDate, b.EndDate, b.DurationType, b.DurationCount,
		b.TotalPrice, b.AdvanceAmount, b.PaidAmount, string(b.PaymentStatus), string(b.Status), nullString(b.PaymentRef), b.LockerDeposit,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Kind = r.t.Kind
	return nil
}

// GetByID loads a booking without locking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.get(ctx, r.db, id, false)
}

// GetForUpdateTx loads a booking and locks its row.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return r.get(ctx, tx, id, true)
}

func (r *BookingRepo) get(ctx context.Context, q queryer, id uint64, lock bool) (*model.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, r.columns(""), r.t.Bookings)
	if lock {
		query += " FOR UPDATE"
	}
	b, err := r.scan(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// OverlappingByParentTx returns the pending or confirmed bookings of a
// cabin or hostel room whose range intersects [start, end].
func (r *BookingRepo) OverlappingByParentTx(ctx context.Context, tx *sql.Tx, parentID uint64, start, end time.Time) ([]model.Booking, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s
	                  WHERE %s = ? AND status IN ('pending','confirmed') AND start_date <= ? AND end_date >= ?`,
		r.columns(""), r.t.Bookings, r.t.ParentCol)
	return r.list(ctx, tx, q, parentID, end, start)
}

// OverlappingByUnitTx is OverlappingByParentTx for a single unit,
// ignoring the booking excludeID (0 excludes nothing).
func (r *BookingRepo) OverlappingByUnitTx(ctx context.Context, tx *sql.Tx, unitID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s
	                  WHERE %s = ? AND status IN ('pending','confirmed') AND start_date <= ? AND end_date >= ? AND id <> ?`,
		r.columns(""), r.t.Bookings, r.t.UnitCol)
	return r.list(ctx, tx, q, unitID, end, start, excludeID)
}

// CancelTx marks a booking cancelled.  The update is guarded on the
// current status so a second cancellation never rewrites cancelled_at;
// ErrConflict is returned in that case.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, reason *string, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET status = 'cancelled', cancelled_at = ?, cancellation_reason = ?, updated_at = ?
	                  WHERE id = ? AND status <> 'cancelled'`, r.t.Bookings)
	res, err := tx.ExecContext(ctx, q, at, nullString(reason), at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// MoveTx points a booking at a new unit and parent.
func (r *BookingRepo) MoveTx(ctx context.Context, tx *sql.Tx, id, unitID, parentID uint64, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ?, transferred_at = ?, updated_at = ? WHERE id = ?`,
		r.t.Bookings, r.t.UnitCol, r.t.ParentCol)
	res, err := tx.ExecContext(ctx, q, unitID, parentID, at, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePaymentTx records a payment state change on a booking.
func (r *BookingRepo) UpdatePaymentTx(ctx context.Context, tx *sql.Tx, b *model.Booking, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET payment_status = ?, status = ?, paid_amount = ?, payment_ref = ?, updated_at = ?
	                  WHERE id = ?`, r.t.Bookings)
	_, err := tx.ExecContext(ctx, q, string(b.PaymentStatus), string(b.Status), b.PaidAmount, nullString(b.PaymentRef), at, b.ID)
	return err
}

// MarkDepositRefunded sets locker_refunded once.  It reports false when
// the deposit had already been refunded, in which case nothing is written.
func (r *BookingRepo) MarkDepositRefunded(ctx context.Context, id uint64, at time.Time) (bool, error) {
	q := fmt.Sprintf(`UPDATE %s SET locker_refunded = 1, locker_refund_date = ?, updated_at = ?
	                  WHERE id = ? AND locker_refunded = 0`, r.t.Bookings)
	res, err := r.db.ExecContext(ctx, q, at, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = ? ORDER BY created_at DESC`, r.columns(""), r.t.Bookings)
	return r.list(ctx, r.db, q, userID)
}

// ListDeposits returns bookings carrying a locker deposit.  A zero
// vendorID lists every vendor's bookings (admin view).
func (r *BookingRepo) ListDeposits(ctx context.Context, vendorID uint64) ([]model.Booking, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s b JOIN %s p ON p.id = b.%s
	                  WHERE b.locker_deposit > 0 AND (? = 0 OR p.vendor_id = ?)
	                  ORDER BY b.created_at DESC`, r.columns("b"), r.t.Bookings, r.t.Parents, r.t.ParentCol)
	return r.list(ctx, r.db, q, vendorID, vendorID)
}

// UsersOfVendor returns the distinct users holding an active booking on
// any of the vendor's units.  It is the audience of a vendor offer.
func (r *BookingRepo) UsersOfVendor(ctx context.Context, vendorID uint64) ([]uint64, error) {
	q := fmt.Sprintf(`SELECT DISTINCT b.user_id FROM %s b JOIN %s p ON p.id = b.%s
	                  WHERE p.vendor_id = ? AND b.status IN ('pending','confirmed')`, r.t.Bookings, r.t.Parents, r.t.ParentCol)
	rows, err := r.db.QueryContext(ctx, q, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
