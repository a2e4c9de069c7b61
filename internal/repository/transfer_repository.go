package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stayseat/booking-api/internal/model"
)

// TransferRepo keeps the audit trail of unit transfers.
type TransferRepo struct {
	db *sql.DB
	t  Tables
}

func NewTransferRepo(db *sql.DB, kind model.Kind) *TransferRepo {
	return &TransferRepo{db: db, t: TablesFor(kind)}
}

// CreateTx appends a transfer row.
func (r *TransferRepo) CreateTx(ctx context.Context, tx *sql.Tx, tr *model.Transfer) error {
	q := fmt.Sprintf(`INSERT INTO %s (booking_id, from_unit_id, to_unit_id, from_parent_id, to_parent_id, transferred_by, reason, created_at)
	                  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.t.Transfers)
	res, err := tx.ExecContext(ctx, q, tr.BookingID, tr.FromUnitID, tr.ToUnitID, tr.FromParentID, tr.ToParentID,
		tr.TransferredBy, tr.Reason, tr.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tr.ID = uint64(id)
	return nil
}

// List returns transfers whose source or destination belongs to the
// vendor, newest first.  A zero vendorID lists everything.
func (r *TransferRepo) List(ctx context.Context, vendorID uint64) ([]model.Transfer, error) {
	q := fmt.Sprintf(`SELECT t.id, t.booking_id, t.from_unit_id, t.to_unit_id, t.from_parent_id, t.to_parent_id,
	                         t.transferred_by, t.reason, t.created_at
	                  FROM %s t
	                  JOIN %s pf ON pf.id = t.from_parent_id
	                  JOIN %s pt ON pt.id = t.to_parent_id
	                  WHERE ? = 0 OR pf.vendor_id = ? OR pt.vendor_id = ?
	                  ORDER BY t.created_at DESC`, r.t.Transfers, r.t.Parents, r.t.Parents)
	rows, err := r.db.QueryContext(ctx, q, vendorID, vendorID, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transfer, 0)
	for rows.Next() {
		var tr model.Transfer
		if err := rows.Scan(&tr.ID, &tr.BookingID, &tr.FromUnitID, &tr.ToUnitID, &tr.FromParentID, &tr.ToParentID,
			&tr.TransferredBy, &tr.Reason, &tr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
