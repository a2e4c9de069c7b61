package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/stayseat/booking-api/internal/model"
)

// PayoutRepo persists vendor payout settings and payout history.
type PayoutRepo struct{ DB *sql.DB }

func NewPayoutRepo(db *sql.DB) *PayoutRepo { return &PayoutRepo{DB: db} }

const payoutSettingsColumns = "vendor_id, auto_payout, schedule, min_amount, bank_account, ifsc, updated_at"

func scanPayoutSettings(sc interface{ Scan(...any) error }) (*model.PayoutSettings, error) {
	var s model.PayoutSettings
	if err := sc.Scan(&s.VendorID, &s.AutoPayout, &s.Schedule, &s.MinAmount, &s.BankAccount, &s.IFSC, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetSettings returns a vendor's payout settings or ErrNotFound.
func (r *PayoutRepo) GetSettings(ctx context.Context, vendorID uint64) (*model.PayoutSettings, error) {
	return scanPayoutSettings(r.DB.QueryRowContext(ctx,
		"SELECT "+payoutSettingsColumns+" FROM payout_settings WHERE vendor_id=?", vendorID))
}

// UpsertSettings creates or replaces a vendor's payout settings.
func (r *PayoutRepo) UpsertSettings(ctx context.Context, s *model.PayoutSettings) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO payout_settings (vendor_id, auto_payout, schedule, min_amount, bank_account, ifsc, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE auto_payout=VALUES(auto_payout), schedule=VALUES(schedule),
		   min_amount=VALUES(min_amount), bank_account=VALUES(bank_account), ifsc=VALUES(ifsc), updated_at=VALUES(updated_at)`,
		s.VendorID, s.AutoPayout, s.Schedule, s.MinAmount, s.BankAccount, s.IFSC, s.UpdatedAt)
	return err
}

// ListAutoSettings returns the settings of vendors that opted into
// automatic payouts.
func (r *PayoutRepo) ListAutoSettings(ctx context.Context) ([]model.PayoutSettings, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+payoutSettingsColumns+" FROM payout_settings WHERE auto_payout=1 ORDER BY vendor_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PayoutSettings
	for rows.Next() {
		s, err := scanPayoutSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// LastPeriodEnd returns the end of the vendor's latest payout period.
// ok is false when the vendor was never paid out.
func (r *PayoutRepo) LastPeriodEnd(ctx context.Context, vendorID uint64) (end time.Time, ok bool, err error) {
	var nt sql.NullTime
	err = r.DB.QueryRowContext(ctx, "SELECT MAX(period_end) FROM payouts WHERE vendor_id=?", vendorID).Scan(&nt)
	if err != nil {
		return time.Time{}, false, err
	}
	return nt.Time.UTC(), nt.Valid, nil
}

// Create inserts a payout.  A second payout for the same vendor and period
// start yields ErrConflict.
func (r *PayoutRepo) Create(ctx context.Context, p *model.Payout) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO payouts (vendor_id, period_start, period_end, gross, commission_pct, commission, net, status, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.VendorID, p.PeriodStart, p.PeriodEnd, p.Gross, p.CommissionPct, p.Commission, p.Net, p.Status, p.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByVendor returns a vendor's payouts, newest first.
func (r *PayoutRepo) ListByVendor(ctx context.Context, vendorID uint64) ([]model.Payout, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, vendor_id, period_start, period_end, gross, commission_pct, commission, net, status, created_at
		 FROM payouts WHERE vendor_id=? ORDER BY period_end DESC`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Payout, 0)
	for rows.Next() {
		var p model.Payout
		if err := rows.Scan(&p.ID, &p.VendorID, &p.PeriodStart, &p.PeriodEnd, &p.Gross, &p.CommissionPct,
			&p.Commission, &p.Net, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
