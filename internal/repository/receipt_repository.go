package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stayseat/booking-api/internal/model"
)

// ReceiptRepo stores the append-only receipts of one inventory kind.
type ReceiptRepo struct {
	db *sql.DB
	t  Tables
}

func NewReceiptRepo(db *sql.DB, kind model.Kind) *ReceiptRepo {
	return &ReceiptRepo{db: db, t: TablesFor(kind)}
}

// newReceiptNo builds a short human-readable receipt number such as
// "RC-7F3A9C2E1B4D".
func newReceiptNo() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RC-" + strings.ToUpper(id[:12])
}

// CreateTx inserts a receipt.  A receipt number is generated when the
// caller leaves it empty.
func (r *ReceiptRepo) CreateTx(ctx context.Context, tx *sql.Tx, rc *model.Receipt) error {
	if rc.ReceiptNo == "" {
		rc.ReceiptNo = newReceiptNo()
	}
	var collectedBy sql.NullInt64
	if rc.CollectedBy != nil {
		collectedBy = sql.NullInt64{Int64: int64(*rc.CollectedBy), Valid: true}
	}
	q := fmt.Sprintf(`INSERT INTO %s (receipt_no, booking_id, user_id, amount, method, transaction_id, type, collected_by, created_at)
	                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.t.Receipts)
	res, err := tx.ExecContext(ctx, q, rc.ReceiptNo, rc.BookingID, rc.UserID, rc.Amount, rc.Method,
		nullString(rc.TransactionID), string(rc.Type), collectedBy, rc.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rc.ID = uint64(id)
	return nil
}

// ListByBooking returns the receipts of a booking in collection order.
func (r *ReceiptRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Receipt, error) {
	q := fmt.Sprintf(`SELECT id, receipt_no, booking_id, user_id, amount, method, transaction_id, type, collected_by, created_at
	                  FROM %s WHERE booking_id = ? ORDER BY id`, r.t.Receipts)
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Receipt, 0)
	for rows.Next() {
		var (
			rc  model.Receipt
			txn sql.NullString
			by  sql.NullInt64
		)
		if err := rows.Scan(&rc.ID, &rc.ReceiptNo, &rc.BookingID, &rc.UserID, &rc.Amount, &rc.Method, &txn,
			&rc.Type, &by, &rc.CreatedAt); err != nil {
			return nil, err
		}
		rc.TransactionID = stringPtr(txn)
		if by.Valid {
			v := uint64(by.Int64)
			rc.CollectedBy = &v
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// SumForVendor totals the receipts collected on a vendor's units with
// created_at in [from, to).
func (r *ReceiptRepo) SumForVendor(ctx context.Context, vendorID uint64, from, to time.Time) (int64, error) {
	q := fmt.Sprintf(`SELECT COALESCE(SUM(rc.amount), 0) FROM %s rc
	                  JOIN %s b ON b.id = rc.booking_id
	                  JOIN %s p ON p.id = b.%s
	                  WHERE p.vendor_id = ? AND rc.created_at >= ? AND rc.created_at < ?`,
		r.t.Receipts, r.t.Bookings, r.t.Parents, r.t.ParentCol)
	var sum int64
	err := r.db.QueryRowContext(ctx, q, vendorID, from, to).Scan(&sum)
	return sum, err
}
