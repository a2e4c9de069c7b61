package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/stayseat/booking-api/internal/model"
)

// GatewayPaymentRepo records every gateway payment applied to a booking.
// The table is shared by both inventory kinds and keyed by payment id, with
// a unique order id, so a checkout can settle one booking only.
type GatewayPaymentRepo struct {
	DB *sql.DB
}

func NewGatewayPaymentRepo(db *sql.DB) *GatewayPaymentRepo { return &GatewayPaymentRepo{DB: db} }

// ClaimTx binds a gateway payment to a booking.  A payment or order that
// was already claimed yields ErrConflict.
func (r *GatewayPaymentRepo) ClaimTx(ctx context.Context, tx *sql.Tx, kind model.Kind, bookingID uint64, orderID, paymentID string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO gateway_payments (payment_id, order_id, kind, booking_id, created_at) VALUES (?,?,?,?,?)`,
		paymentID, orderID, string(kind), bookingID, at)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict
		}
		return err
	}
	return nil
}
