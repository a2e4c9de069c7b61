package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/queue"
	"github.com/stayseat/booking-api/internal/repository"
)

func TestCheckAvailability(t *testing.T) {
	inv, mock, _ := newTestInventory(t)
	start, end := day(2026, 4, 1), day(2026, 4, 30)

	held := model.Booking{ID: 1, UnitID: 1, ParentID: 3, StartDate: day(2026, 3, 15), EndDate: day(2026, 4, 14),
		PaymentStatus: model.PaymentCompleted, Status: model.BookingConfirmed}
	leftEarly := model.Booking{ID: 2, UnitID: 2, ParentID: 3, StartDate: day(2026, 3, 1), EndDate: day(2026, 4, 30),
		PaymentStatus: model.PaymentAdvancePaid, Status: model.BookingConfirmed}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE cabin_id = \? AND is_blocked = 0`).
		WithArgs(3).
		WillReturnRows(unitRows(
			model.Unit{ID: 1, ParentID: 3, Label: "A1"},
			model.Unit{ID: 2, ParentID: 3, Label: "A2"},
			model.Unit{ID: 3, ParentID: 3, Label: "A3"},
		))
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE cabin_id = \?`).
		WithArgs(3, end, start).
		WillReturnRows(bookingRows(held, leftEarly))
	mock.ExpectQuery(`SELECT booking_id, proportional_end_date FROM dues`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "proportional_end_date"}).AddRow(2, day(2026, 3, 20)))
	mock.ExpectCommit()

	free, err := inv.CheckAvailability(context.Background(), 3, start, end)
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Equal(t, uint64(2), free[0].ID)
	assert.Equal(t, uint64(3), free[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAvailabilityAbortsOnQueryError(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats`).WillReturnRows(unitRows(model.Unit{ID: 1, ParentID: 3}))
	mock.ExpectQuery(`SELECT .* FROM bookings`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	free, err := inv.CheckAvailability(context.Background(), 3, day(2026, 4, 1), day(2026, 4, 30))
	assert.Error(t, err)
	assert.Nil(t, free)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAvailabilityRejectsInvertedRange(t *testing.T) {
	inv, mock, _ := newTestInventory(t)
	_, err := inv.CheckAvailability(context.Background(), 3, day(2026, 4, 30), day(2026, 4, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAdvancePaidCreatesDue(t *testing.T) {
	inv, mock, pub := newTestInventory(t)
	start, end := day(2026, 3, 1), day(2026, 3, 31)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, IsAvailable: true, Version: 4}))
	mock.ExpectQuery(`SELECT vendor_id FROM cabins WHERE id = \?`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id"}).AddRow(10))
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WithArgs(7, end, start, 0).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(7, 3, 42, start, end, "monthly", 1, 100000, 40000, 40000, "advance_paid", "confirmed", nil, 50000, testNow, testNow).
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(`INSERT INTO receipts`).
		WithArgs(sqlmock.AnyArg(), 55, 42, 40000, "cash", nil, "advance", 10, testNow).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`INSERT INTO dues`).
		WithArgs(55, 7, 42, 100000, 40000, 60000, 0, day(2026, 3, 28), "pending", testNow, testNow).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE seat_id = \?`).
		WithArgs(7, testToday, testToday).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(`UPDATE seats SET is_available = \?`).
		WithArgs(false, 7, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor:         vendor,
		UserID:        42,
		UnitID:        7,
		StartDate:     start,
		EndDate:       end,
		DurationType:  "monthly",
		DurationCount: 1,
		TotalPrice:    100000,
		AdvanceAmount: 40000,
		LockerDeposit: 50000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(55), res.Booking.ID)
	assert.Equal(t, model.PaymentAdvancePaid, res.Booking.PaymentStatus)
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, int64(40000), res.Receipt.Amount)
	assert.Regexp(t, `^RC-[0-9A-F]{12}$`, res.Receipt.ReceiptNo)
	require.NotNil(t, res.Due)
	assert.Equal(t, int64(60000), res.Due.DueAmount)
	assert.Equal(t, day(2026, 3, 28), res.Due.DueDate)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.msgs, 1)
	ev := pub.msgs[0].payload.(queue.BookingEvent)
	assert.Equal(t, queue.BookingEventsQueue, pub.msgs[0].queue)
	assert.Equal(t, queue.EventBookingCreated, ev.Type)
	assert.Equal(t, int64(40000), ev.Amount)
}

func TestReservePendingWritesNoReceipt(t *testing.T) {
	inv, mock, _ := newTestInventory(t)
	start, end := day(2026, 3, 1), day(2026, 3, 31)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, Price: 30000, IsAvailable: false, Version: 2}))
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(7, 3, 42, start, end, "", 0, 31000, 0, 0, "pending", "pending", nil, 0, testNow, testNow).
		WillReturnResult(sqlmock.NewResult(56, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectCommit()

	res, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: student, UnitID: 7, StartDate: start, EndDate: end, TotalPrice: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, res.Booking.Status)
	assert.Equal(t, int64(31000), res.Booking.TotalPrice)
	assert.Nil(t, res.Receipt)
	assert.Nil(t, res.Due)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveByStudentIgnoresPaymentFields(t *testing.T) {
	inv, mock, pub := newTestInventory(t)
	start, end := day(2026, 3, 1), day(2026, 3, 30)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, Price: 90000, IsAvailable: true, Version: 1}))
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(7, 3, 42, start, end, "", 0, 90000, 0, 0, "pending", "pending", nil, 0, testNow, testNow).
		WillReturnResult(sqlmock.NewResult(57, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(`UPDATE seats SET is_available = \?`).
		WithArgs(false, 7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: student, UserID: 77, UnitID: 7, StartDate: start, EndDate: end,
		TotalPrice: 1, AdvanceAmount: 1, PaymentMethod: "cash", PaymentID: "pay_never_verified",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.Booking.UserID)
	assert.Equal(t, int64(90000), res.Booking.TotalPrice)
	assert.Equal(t, model.PaymentPending, res.Booking.PaymentStatus)
	assert.Equal(t, model.BookingPending, res.Booking.Status)
	assert.Nil(t, res.Booking.PaymentRef)
	assert.Nil(t, res.Receipt)
	assert.Nil(t, res.Due)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.msgs, 1)
	assert.Zero(t, pub.msgs[0].payload.(queue.BookingEvent).Amount)
}

func TestReserveRejectsOverlap(t *testing.T) {
	inv, mock, pub := newTestInventory(t)
	existing := activeBooking()
	existing.PaymentStatus = model.PaymentCompleted

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, Version: 1}))
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WillReturnRows(bookingRows(existing))
	mock.ExpectRollback()

	_, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: student, UnitID: 7, StartDate: day(2026, 3, 20), EndDate: day(2026, 4, 19), TotalPrice: 100000,
	})
	assert.ErrorIs(t, err, ErrUnitNotAvailable)
	assert.Empty(t, pub.msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveHonoursEarlyExit(t *testing.T) {
	inv, mock, _ := newTestInventory(t)
	existing := activeBooking()
	start, end := day(2026, 3, 20), day(2026, 4, 19)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, Version: 1}))
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WillReturnRows(bookingRows(existing))
	mock.ExpectQuery(`SELECT booking_id, proportional_end_date FROM dues`).
		WithArgs(55).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "proportional_end_date"}).AddRow(55, day(2026, 3, 15)))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(60, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectCommit()

	res, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: student, UnitID: 7, StartDate: start, EndDate: end, TotalPrice: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(60), res.Booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsBlockedUnit(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, IsBlocked: true}))
	mock.ExpectRollback()

	_, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: student, UnitID: 7, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31), TotalPrice: 1000,
	})
	assert.ErrorIs(t, err, ErrUnitNotAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRollsBackWhenDueInsertFails(t *testing.T) {
	inv, mock, pub := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, IsAvailable: true}))
	mock.ExpectQuery(`SELECT vendor_id FROM cabins WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id"}).AddRow(10))
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(`INSERT INTO receipts`).WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`INSERT INTO dues`).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: vendor, UserID: 42, UnitID: 7, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31),
		TotalPrice: 100000, AdvanceAmount: 40000,
	})
	assert.Error(t, err)
	assert.Empty(t, pub.msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveValidatesAmounts(t *testing.T) {
	inv, mock, _ := newTestInventory(t)
	_, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: vendor, UserID: 42, UnitID: 7, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31),
		TotalPrice: 1000, AdvanceAmount: 2000,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveByForeignVendorForbidden(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3}))
	mock.ExpectQuery(`SELECT vendor_id FROM cabins WHERE id = \?`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id"}).AddRow(99))
	mock.ExpectRollback()

	_, err := inv.Reserve(context.Background(), ReserveRequest{
		Actor: vendor, UserID: 42, UnitID: 7, StartDate: day(2026, 3, 1), EndDate: day(2026, 3, 31), TotalPrice: 1000,
	})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseCancelsAndFreesUnit(t *testing.T) {
	inv, mock, pub := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? FOR UPDATE`).
		WithArgs(55).
		WillReturnRows(bookingRows(activeBooking()))
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, IsAvailable: false, Version: 6}))
	mock.ExpectExec(`UPDATE bookings SET status = 'cancelled'`).
		WithArgs(testNow, "moving out", testNow, 55).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE dues SET status = 'cancelled'`).
		WithArgs(testNow, 55).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE seat_id = \?`).
		WithArgs(7, testToday, testToday).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`UPDATE seats SET is_available = \?`).
		WithArgs(true, 7, 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := inv.Release(context.Background(), CancelRequest{Actor: student, BookingID: 55, Reason: "moving out"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyCancelled)
	assert.Equal(t, int64(1), res.DuesCancelled)
	assert.Equal(t, model.BookingCancelled, res.Booking.Status)
	require.NotNil(t, res.Booking.CancelledAt)
	assert.Equal(t, testNow, *res.Booking.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, queue.EventBookingCancelled, pub.msgs[0].payload.(queue.BookingEvent).Type)
}

func TestReleaseTwiceWritesNothing(t *testing.T) {
	inv, mock, pub := newTestInventory(t)
	b := activeBooking()
	b.Status = model.BookingCancelled

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? FOR UPDATE`).WillReturnRows(bookingRows(b))
	mock.ExpectCommit()

	res, err := inv.Release(context.Background(), CancelRequest{Actor: student, BookingID: 55})
	require.NoError(t, err)
	assert.True(t, res.AlreadyCancelled)
	assert.Empty(t, pub.msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseOtherStudentForbidden(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? FOR UPDATE`).WillReturnRows(bookingRows(activeBooking()))
	mock.ExpectRollback()

	_, err := inv.Release(context.Background(), CancelRequest{Actor: Actor{UserID: 99, Role: model.RoleStudent}, BookingID: 55})
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectTransferLocks(mock sqlmock.Sqlmock, dest model.Unit) {
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? FOR UPDATE`).
		WithArgs(55).
		WillReturnRows(bookingRows(activeBooking()))
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WithArgs(5).
		WillReturnRows(unitRows(dest))
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, IsAvailable: false, Version: 8}))
	mock.ExpectQuery(`SELECT vendor_id FROM cabins WHERE id = \?`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id"}).AddRow(10))
}

func TestTransferMovesBooking(t *testing.T) {
	inv, mock, pub := newTestInventory(t)

	expectTransferLocks(mock, model.Unit{ID: 5, ParentID: 3, IsAvailable: true, Version: 2})
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WithArgs(5, day(2026, 3, 31), day(2026, 3, 1), 55).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(`UPDATE bookings SET seat_id = \?, cabin_id = \?`).
		WithArgs(5, 3, testNow, testNow, 55).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE dues SET seat_id = \?`).
		WithArgs(5, testNow, 55).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seat_transfers`).
		WithArgs(55, 7, 5, 3, 3, 10, "window seat", testNow).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE seat_id = \?`).
		WithArgs(5, testToday, testToday).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(`UPDATE seats SET is_available = \?`).
		WithArgs(false, 5, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE seat_id = \?`).
		WithArgs(7, testToday, testToday).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`UPDATE seats SET is_available = \?`).
		WithArgs(true, 7, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := inv.Transfer(context.Background(), TransferRequest{Actor: vendor, BookingID: 55, ToUnitID: 5, Reason: "window seat"})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), b.UnitID)
	assert.NotNil(t, b.TransferredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, queue.EventBookingTransferred, pub.msgs[0].payload.(queue.BookingEvent).Type)
}

func TestTransferToHeldUnitFails(t *testing.T) {
	inv, mock, _ := newTestInventory(t)
	other := activeBooking()
	other.ID, other.UnitID, other.PaymentStatus = 70, 5, model.PaymentCompleted

	expectTransferLocks(mock, model.Unit{ID: 5, ParentID: 3, Version: 2})
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).
		WillReturnRows(bookingRows(other))
	mock.ExpectRollback()

	_, err := inv.Transfer(context.Background(), TransferRequest{Actor: vendor, BookingID: 55, ToUnitID: 5})
	assert.ErrorIs(t, err, ErrUnitNotAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRollsBackOnAuditFailure(t *testing.T) {
	inv, mock, pub := newTestInventory(t)

	expectTransferLocks(mock, model.Unit{ID: 5, ParentID: 3, IsAvailable: true, Version: 2})
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE seat_id = \?`).WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectExec(`UPDATE bookings SET seat_id`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE dues SET seat_id`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seat_transfers`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := inv.Transfer(context.Background(), TransferRequest{Actor: vendor, BookingID: 55, ToUnitID: 5})
	assert.Error(t, err)
	assert.Empty(t, pub.msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferToSameUnit(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? FOR UPDATE`).WillReturnRows(bookingRows(activeBooking()))
	mock.ExpectRollback()

	_, err := inv.Transfer(context.Background(), TransferRequest{Actor: vendor, BookingID: 55, ToUnitID: 7})
	assert.ErrorIs(t, err, ErrSameUnit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConcurrentVersionMismatch(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? FOR UPDATE`).WillReturnRows(bookingRows(activeBooking()))
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, Version: 6}))
	mock.ExpectExec(`UPDATE bookings SET status = 'cancelled'`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE dues SET status = 'cancelled'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`UPDATE seats SET is_available = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := inv.Release(context.Background(), CancelRequest{Actor: admin, BookingID: 55})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBlockedByOwningVendor(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, IsAvailable: true, Version: 4}))
	mock.ExpectQuery(`SELECT vendor_id FROM cabins WHERE id = \?`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id"}).AddRow(10))
	mock.ExpectExec(`UPDATE seats SET is_blocked = \?`).
		WithArgs(true, 7, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := inv.SetBlocked(context.Background(), vendor, 7, true)
	require.NoError(t, err)
	assert.True(t, u.IsBlocked)
	assert.Equal(t, uint32(5), u.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBlockedUnchangedWritesNothing(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, IsBlocked: true, Version: 4}))
	mock.ExpectCommit()

	u, err := inv.SetBlocked(context.Background(), admin, 7, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), u.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBlockedForbidden(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, Version: 4}))
	mock.ExpectQuery(`SELECT vendor_id FROM cabins WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"vendor_id"}).AddRow(99))
	mock.ExpectRollback()

	_, err := inv.SetBlocked(context.Background(), vendor, 7, true)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM seats WHERE id = \? FOR UPDATE`).
		WillReturnRows(unitRows(model.Unit{ID: 7, ParentID: 3, Version: 4}))
	mock.ExpectRollback()

	_, err = inv.SetBlocked(context.Background(), student, 7, true)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var receiptCols = []string{"id", "receipt_no", "booking_id", "user_id", "amount", "method", "transaction_id", "type", "collected_by", "created_at"}

func TestReceiptsOfOwnBooking(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \?`).
		WithArgs(55).
		WillReturnRows(bookingRows(activeBooking()))
	mock.ExpectQuery(`SELECT .* FROM receipts WHERE booking_id = \? ORDER BY id`).
		WithArgs(55).
		WillReturnRows(sqlmock.NewRows(receiptCols).
			AddRow(9, "RCP-20260301-0009", 55, 42, 40000, "cash", nil, "advance", 10, testNow).
			AddRow(12, "RCP-20260310-0012", 55, 42, 60000, "online", "pay_123", "due_collection", nil, testNow))

	list, err := inv.Receipts(context.Background(), student, 55)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(40000), list[0].Amount)
	assert.Nil(t, list[1].CollectedBy)
	if assert.NotNil(t, list[1].TransactionID) {
		assert.Equal(t, "pay_123", *list[1].TransactionID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptsOfOtherStudentForbidden(t *testing.T) {
	inv, mock, _ := newTestInventory(t)

	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \?`).
		WillReturnRows(bookingRows(activeBooking()))

	_, err := inv.Receipts(context.Background(), Actor{UserID: 43, Role: model.RoleStudent}, 55)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
