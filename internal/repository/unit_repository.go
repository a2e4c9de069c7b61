package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stayseat/booking-api/internal/model"
)

// UnitRepo provides access to seats (cabins) or beds (hostel rooms)
// depending on the table set it was built with.
type UnitRepo struct {
	db *sql.DB
	t  Tables
}

// NewUnitRepo returns a UnitRepo for the given kind.
func NewUnitRepo(db *sql.DB, kind model.Kind) *UnitRepo {
	return &UnitRepo{db: db, t: TablesFor(kind)}
}

func (r *UnitRepo) columns() string {
	return fmt.Sprintf(`id, %s, label, category, sharing, price, is_available, is_blocked, version, created_at, updated_at`, r.t.ParentCol)
}

func scanUnit(sc interface{ Scan(...any) error }) (model.Unit, error) {
	var u model.Unit
	var sharing sql.NullString
	err := sc.Scan(&u.ID, &u.ParentID, &u.Label, &u.Category, &sharing, &u.Price,
		&u.IsAvailable, &u.IsBlocked, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	u.Sharing = sharing.String
	return u, err
}

func (r *UnitRepo) list(ctx context.Context, q queryer, query string, args ...any) ([]model.Unit, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := make([]model.Unit, 0)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// ListByParent returns every unit of a cabin or hostel room ordered by label.
func (r *UnitRepo) ListByParent(ctx context.Context, parentID uint64) ([]model.Unit, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? ORDER BY label`, r.columns(), r.t.Units, r.t.ParentCol)
	return r.list(ctx, r.db, q, parentID)
}

// ListUnblockedTx returns the units of a parent that are not blocked.
// These are the candidates of an availability check.
func (r *UnitRepo) ListUnblockedTx(ctx context.Context, tx *sql.Tx, parentID uint64) ([]model.Unit, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? AND is_blocked = 0 ORDER BY label`, r.columns(), r.t.Units, r.t.ParentCol)
	return r.list(ctx, tx, q, parentID)
}

// GetForUpdateTx loads a unit and takes a row lock on it for the rest of
// the transaction.  Every booking mutation locks the units it touches so
// that concurrent writers on the same unit are serialised.
func (r *UnitRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Unit, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? FOR UPDATE`, r.columns(), r.t.Units)
	u, err := scanUnit(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// HasHoldingBookingTx reports whether any pending or confirmed booking of
// the unit ends on or after today, ignoring advance-paid tenants whose
// early exit date is already past.  It is the source of truth for the
// is_available mirror.
func (r *UnitRepo) HasHoldingBookingTx(ctx context.Context, tx *sql.Tx, unitID uint64, today time.Time) (bool, error) {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ? AND status IN ('pending','confirmed') AND end_date >= ?
	                  AND NOT (payment_status = 'advance_paid' AND EXISTS (
	                      SELECT 1 FROM %s d WHERE d.booking_id = %s.id AND d.status = 'pending'
	                      AND d.proportional_end_date < ?))`,
		r.t.Bookings, r.t.UnitCol, r.t.Dues, r.t.Bookings)
	var n int
	if err := tx.QueryRowContext(ctx, q, unitID, today, today).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetAvailabilityTx writes the is_available flag guarded by the version
// read under lock.  ErrStaleVersion means someone updated the unit in
// between, which cannot happen while the row lock is held unless the
// caller skipped GetForUpdateTx.
func (r *UnitRepo) SetAvailabilityTx(ctx context.Context, tx *sql.Tx, id uint64, available bool, version uint32) error {
	q := fmt.Sprintf(`UPDATE %s SET is_available = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	                  WHERE id = ? AND version = ?`, r.t.Units)
	res, err := tx.ExecContext(ctx, q, available, id, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleVersion
	}
	return nil
}

// SetBlockedTx toggles the vendor block flag of a unit locked by
// GetForUpdateTx.
func (r *UnitRepo) SetBlockedTx(ctx context.Context, tx *sql.Tx, id uint64, blocked bool, version uint32) error {
	q := fmt.Sprintf(`UPDATE %s SET is_blocked = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	                  WHERE id = ? AND version = ?`, r.t.Units)
	res, err := tx.ExecContext(ctx, q, blocked, id, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleVersion
	}
	return nil
}

// ParentVendor returns the vendor owning a cabin or hostel room.
func (r *UnitRepo) ParentVendor(ctx context.Context, parentID uint64) (uint64, error) {
	return r.parentVendor(ctx, r.db, parentID)
}

// ParentVendorTx is ParentVendor inside a transaction.
func (r *UnitRepo) ParentVendorTx(ctx context.Context, tx *sql.Tx, parentID uint64) (uint64, error) {
	return r.parentVendor(ctx, tx, parentID)
}

func (r *UnitRepo) parentVendor(ctx context.Context, q queryer, parentID uint64) (uint64, error) {
	var vendorID uint64
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT vendor_id FROM %s WHERE id = ?`, r.t.Parents), parentID).Scan(&vendorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return vendorID, nil
}
