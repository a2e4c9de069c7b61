package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stayseat/booking-api/internal/model"
)

// DueRepo persists dues rows for one inventory kind.
type DueRepo struct {
	db *sql.DB
	t  Tables
}

func NewDueRepo(db *sql.DB, kind model.Kind) *DueRepo {
	return &DueRepo{db: db, t: TablesFor(kind)}
}

func (r *DueRepo) columns() string {
	return "id, booking_id, " + r.t.UnitCol + `, user_id, total_fee, advance_paid, due_amount, paid_amount,
	        due_date, proportional_end_date, status, created_at, updated_at`
}

func scanDue(sc interface{ Scan(...any) error }) (model.Due, error) {
	var (
		d    model.Due
		prop sql.NullTime
	)
	err := sc.Scan(&d.ID, &d.BookingID, &d.UnitID, &d.UserID, &d.TotalFee, &d.AdvancePaid, &d.DueAmount, &d.PaidAmount,
		&d.DueDate, &prop, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return d, err
	}
	d.DueDate = model.TruncateDay(d.DueDate)
	if prop.Valid {
		p := model.TruncateDay(prop.Time)
		d.ProportionalEndDate = &p
	}
	return d, nil
}

// CreateTx inserts a dues row and sets its ID.
func (r *DueRepo) CreateTx(ctx context.Context, tx *sql.Tx, d *model.Due) error {
	q := fmt.Sprintf(`INSERT INTO %s (booking_id, %s, user_id, total_fee, advance_paid, due_amount, paid_amount,
	                  due_date, status, created_at, updated_at)
	                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.t.Dues, r.t.UnitCol)
	res, err := tx.ExecContext(ctx, q, d.BookingID, d.UnitID, d.UserID, d.TotalFee, d.AdvancePaid, d.DueAmount, d.PaidAmount,
		d.DueDate, string(d.Status), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// EarlyExitsTx returns, for each of the given bookings, the proportional
// end date recorded on its pending dues row.  Bookings without one are
// absent from the map.
func (r *DueRepo) EarlyExitsTx(ctx context.Context, tx *sql.Tx, bookingIDs []uint64) (map[uint64]time.Time, error) {
	out := make(map[uint64]time.Time)
	if len(bookingIDs) == 0 {
		return out, nil
	}
	q := fmt.Sprintf(`SELECT booking_id, proportional_end_date FROM %s
	                  WHERE status = 'pending' AND proportional_end_date IS NOT NULL AND booking_id IN (%s)`,
		r.t.Dues, placeholders(len(bookingIDs)))
	args := make([]any, len(bookingIDs))
	for i, id := range bookingIDs {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  uint64
			end time.Time
		)
		if err := rows.Scan(&id, &end); err != nil {
			return nil, err
		}
		end = model.TruncateDay(end)
		// Several rows per booking would be unusual; keep the latest date.
		if prev, ok := out[id]; !ok || end.After(prev) {
			out[id] = end
		}
	}
	return out, rows.Err()
}

func (r *DueRepo) GetByID(ctx context.Context, id uint64) (*model.Due, error) {
	return r.get(ctx, r.db, id, false)
}

// GetForUpdateTx loads and locks a dues row.
func (r *DueRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Due, error) {
	return r.get(ctx, tx, id, true)
}

func (r *DueRepo) get(ctx context.Context, q queryer, id uint64, lock bool) (*model.Due, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, r.columns(), r.t.Dues)
	if lock {
		query += " FOR UPDATE"
	}
	d, err := scanDue(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// AddPaymentTx stores the new paid amount and status of a due.
func (r *DueRepo) AddPaymentTx(ctx context.Context, tx *sql.Tx, id uint64, paid int64, status model.DueStatus, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET paid_amount = ?, status = ?, updated_at = ? WHERE id = ?`, r.t.Dues)
	_, err := tx.ExecContext(ctx, q, paid, string(status), at, id)
	return err
}

// SetProportionalEndTx records the early exit date of a tenant.
func (r *DueRepo) SetProportionalEndTx(ctx context.Context, tx *sql.Tx, id uint64, end time.Time, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET proportional_end_date = ?, updated_at = ? WHERE id = ?`, r.t.Dues)
	_, err := tx.ExecContext(ctx, q, end, at, id)
	return err
}

// CancelPendingByBookingTx cancels the outstanding dues of a booking and
// returns how many rows changed.
func (r *DueRepo) CancelPendingByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64, at time.Time) (int64, error) {
	q := fmt.Sprintf(`UPDATE %s SET status = 'cancelled', updated_at = ? WHERE booking_id = ? AND status = 'pending'`, r.t.Dues)
	res, err := tx.ExecContext(ctx, q, at, bookingID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SettleByBookingTx marks every pending due of a booking fully paid.
func (r *DueRepo) SettleByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET paid_amount = due_amount, status = 'paid', updated_at = ?
	                  WHERE booking_id = ? AND status = 'pending'`, r.t.Dues)
	_, err := tx.ExecContext(ctx, q, at, bookingID)
	return err
}

// MoveUnitTx follows a transferred booking onto its new unit.
func (r *DueRepo) MoveUnitTx(ctx context.Context, tx *sql.Tx, bookingID, unitID uint64, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET %s = ?, updated_at = ? WHERE booking_id = ?`, r.t.Dues, r.t.UnitCol)
	_, err := tx.ExecContext(ctx, q, unitID, at, bookingID)
	return err
}

// ListDueBetween returns pending dues whose due date falls in [from, to].
func (r *DueRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Due, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE status = 'pending' AND due_date BETWEEN ? AND ? ORDER BY due_date`,
		r.columns(), r.t.Dues)
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Due, 0)
	for rows.Next() {
		d, err := scanDue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
