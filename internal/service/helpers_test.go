package service

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/stayseat/booking-api/internal/model"
)

var (
	testNow   = time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	testToday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type published struct {
	queue   string
	payload any
}

// recordingPublisher keeps every message instead of sending it.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{queue: queue, payload: payload})
	return nil
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTestInventory(t *testing.T) (*inventory, sqlmock.Sqlmock, *recordingPublisher) {
	t.Helper()
	db, mock := newMockDB(t)
	pub := &recordingPublisher{}
	inv := NewInventory(db, model.KindCabin, pub, quietLogger()).(*inventory)
	inv.now = func() time.Time { return testNow }
	return inv, mock, pub
}

var unitCols = []string{"id", "cabin_id", "label", "category", "sharing", "price", "is_available", "is_blocked", "version", "created_at", "updated_at"}

func unitRows(units ...model.Unit) *sqlmock.Rows {
	rows := sqlmock.NewRows(unitCols)
	for _, u := range units {
		rows.AddRow(u.ID, u.ParentID, u.Label, u.Category, nil, u.Price, u.IsAvailable, u.IsBlocked, u.Version, testNow, testNow)
	}
	return rows
}

var bookingCols = []string{
	"id", "seat_id", "cabin_id", "user_id", "start_date", "end_date", "duration_type", "duration_count",
	"total_price", "advance_amount", "paid_amount", "payment_status", "status", "payment_ref",
	"locker_deposit", "locker_refunded", "locker_refund_date", "cancellation_reason",
	"cancelled_at", "transferred_at", "created_at", "updated_at",
}

func bookingRows(bs ...model.Booking) *sqlmock.Rows {
	rows := sqlmock.NewRows(bookingCols)
	for _, b := range bs {
		rows.AddRow(b.ID, b.UnitID, b.ParentID, b.UserID, b.StartDate, b.EndDate, "monthly", 1,
			b.TotalPrice, b.AdvanceAmount, b.PaidAmount, string(b.PaymentStatus), string(b.Status), nil,
			b.LockerDeposit, b.LockerRefunded, nil, nil,
			nil, nil, testNow, testNow)
	}
	return rows
}

var dueCols = []string{"id", "booking_id", "seat_id", "user_id", "total_fee", "advance_paid", "due_amount", "paid_amount",
	"due_date", "proportional_end_date", "status", "created_at", "updated_at"}

func dueRows(d model.Due) *sqlmock.Rows {
	return sqlmock.NewRows(dueCols).AddRow(d.ID, d.BookingID, d.UnitID, d.UserID, d.TotalFee, d.AdvancePaid, d.DueAmount,
		d.PaidAmount, d.DueDate, nil, string(d.Status), testNow, testNow)
}

// activeBooking is a confirmed, advance-paid March booking of seat 7.
func activeBooking() model.Booking {
	return model.Booking{
		ID: 55, UnitID: 7, ParentID: 3, UserID: 42,
		StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31),
		TotalPrice: 100000, AdvanceAmount: 40000, PaidAmount: 40000,
		PaymentStatus: model.PaymentAdvancePaid, Status: model.BookingConfirmed,
	}
}

var (
	student = Actor{UserID: 42, Role: model.RoleStudent}
	vendor  = Actor{UserID: 10, Role: model.RoleVendor}
	admin   = Actor{UserID: 1, Role: model.RoleAdmin}
)
