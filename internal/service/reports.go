package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/repository"
)

// ReportService exports deposit and transfer ledgers of one kind as CSV.
type ReportService struct {
	kind      model.Kind
	bookings  *repository.BookingRepo
	transfers *repository.TransferRepo
}

func NewReportService(kind model.Kind, bookings *repository.BookingRepo, transfers *repository.TransferRepo) *ReportService {
	return &ReportService{kind: kind, bookings: bookings, transfers: transfers}
}

// scope maps an actor to the vendor filter of a report; admins see all.
func scope(a Actor) (uint64, error) {
	switch {
	case a.IsAdmin():
		return 0, nil
	case a.IsVendor():
		return a.UserID, nil
	}
	return 0, repository.ErrForbidden
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// WriteDeposits writes one row per booking carrying a locker deposit.
func (s *ReportService) WriteDeposits(ctx context.Context, a Actor, w io.Writer) error {
	vendorID, err := scope(a)
	if err != nil {
		return err
	}
	rows, err := s.bookings.ListDeposits(ctx, vendorID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"booking_id", "kind", "unit_id", "user_id", "start_date", "end_date", "status",
		"locker_deposit", "refunded", "refund_date"})
	for _, b := range rows {
		_ = cw.Write([]string{
			strconv.FormatUint(b.ID, 10),
			string(s.kind),
			strconv.FormatUint(b.UnitID, 10),
			strconv.FormatUint(b.UserID, 10),
			b.StartDate.Format(time.DateOnly),
			b.EndDate.Format(time.DateOnly),
			string(b.Status),
			formatMoney(b.LockerDeposit),
			strconv.FormatBool(b.LockerRefunded),
			fmtDate(b.LockerRefundDate),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteTransfers writes the transfer audit trail.
func (s *ReportService) WriteTransfers(ctx context.Context, a Actor, w io.Writer) error {
	vendorID, err := scope(a)
	if err != nil {
		return err
	}
	rows, err := s.transfers.List(ctx, vendorID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"transfer_id", "booking_id", "from_parent_id", "from_unit_id", "to_parent_id", "to_unit_id",
		"transferred_by", "reason", "created_at"})
	for _, t := range rows {
		_ = cw.Write([]string{
			strconv.FormatUint(t.ID, 10),
			strconv.FormatUint(t.BookingID, 10),
			strconv.FormatUint(t.FromParentID, 10),
			strconv.FormatUint(t.FromUnitID, 10),
			strconv.FormatUint(t.ToParentID, 10),
			strconv.FormatUint(t.ToUnitID, 10),
			strconv.FormatUint(t.TransferredBy, 10),
			t.Reason,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	return cw.Error()
}
