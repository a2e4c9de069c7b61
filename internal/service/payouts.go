package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/repository"
)

// revenueSource totals receipts collected on a vendor's units.
type revenueSource interface {
	SumForVendor(ctx context.Context, vendorID uint64, from, to time.Time) (int64, error)
}

// payoutEpoch starts the first period of vendors never paid out.
var payoutEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// PayoutService computes vendor payouts across every inventory kind.
type PayoutService struct {
	repo     *repository.PayoutRepo
	revenue  []revenueSource
	settings *SettingsService
	log      *logrus.Logger
	now      func() time.Time
}

func NewPayoutService(repo *repository.PayoutRepo, settings *SettingsService, log *logrus.Logger, revenue ...revenueSource) *PayoutService {
	return &PayoutService{repo: repo, revenue: revenue, settings: settings, log: log, now: time.Now}
}

// Settings returns a vendor's payout settings, or the defaults (manual,
// monthly) when none were saved.
func (s *PayoutService) Settings(ctx context.Context, vendorID uint64) (*model.PayoutSettings, error) {
	ps, err := s.repo.GetSettings(ctx, vendorID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.PayoutSettings{VendorID: vendorID, Schedule: model.ScheduleMonthly}, nil
	}
	return ps, err
}

// UpdateSettings stores a vendor's payout settings.
func (s *PayoutService) UpdateSettings(ctx context.Context, ps *model.PayoutSettings) error {
	if ps.Schedule != model.ScheduleWeekly && ps.Schedule != model.ScheduleMonthly {
		return fmt.Errorf("%w: schedule must be weekly or monthly", ErrInvalidSettings)
	}
	if ps.MinAmount < 0 {
		return ErrInvalidAmount
	}
	ps.UpdatedAt = s.now().UTC()
	return s.repo.UpsertSettings(ctx, ps)
}

func (s *PayoutService) List(ctx context.Context, vendorID uint64) ([]model.Payout, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

// build computes the payout of a vendor for [start, end).
func (s *PayoutService) build(ctx context.Context, vendorID uint64, start, end time.Time) (*model.Payout, error) {
	var gross int64
	for _, src := range s.revenue {
		sum, err := src.SumForVendor(ctx, vendorID, start, end)
		if err != nil {
			return nil, err
		}
		gross += sum
	}
	pay, err := s.settings.Payment(ctx)
	if err != nil {
		return nil, err
	}
	fee, net := commission(gross, pay.CommissionPct)
	return &model.Payout{
		VendorID:      vendorID,
		PeriodStart:   start,
		PeriodEnd:     end,
		Gross:         gross,
		CommissionPct: pay.CommissionPct,
		Commission:    fee,
		Net:           net,
		CreatedAt:     end,
	}, nil
}

// Request creates a manual payout of everything collected since the last
// one.
func (s *PayoutService) Request(ctx context.Context, vendorID uint64) (*model.Payout, error) {
	start, ok, err := s.repo.LastPeriodEnd(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		start = payoutEpoch
	}
	p, err := s.build(ctx, vendorID, start, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if p.Gross <= 0 {
		return nil, ErrNothingToPay
	}
	p.Status = model.PayoutRequested
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"vendor_id": vendorID, "gross": p.Gross, "net": p.Net}).Info("payout requested")
	return p, nil
}

// periodElapsed reports whether a schedule's period has passed since last.
func periodElapsed(schedule string, last, now time.Time) bool {
	next := last.AddDate(0, 1, 0)
	if schedule == model.ScheduleWeekly {
		next = last.AddDate(0, 0, 7)
	}
	return !now.Before(next)
}

// RunAuto schedules payouts for vendors with auto payout enabled whose
// period elapsed and whose net revenue reaches their minimum.  It returns
// the number of payouts created; one vendor's failure does not stop the
// others.
func (s *PayoutService) RunAuto(ctx context.Context) (int, error) {
	all, err := s.repo.ListAutoSettings(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	created := 0
	for _, ps := range all {
		log := s.log.WithField("vendor_id", ps.VendorID)
		last, ok, err := s.repo.LastPeriodEnd(ctx, ps.VendorID)
		if err != nil {
			log.WithError(err).Error("auto payout: last period lookup failed")
			continue
		}
		if !ok {
			last = payoutEpoch
		} else if !periodElapsed(ps.Schedule, last, now) {
			continue
		}
		p, err := s.build(ctx, ps.VendorID, last, now)
		if err != nil {
			log.WithError(err).Error("auto payout: compute failed")
			continue
		}
		if p.Gross <= 0 || p.Net < ps.MinAmount {
			continue
		}
		p.Status = model.PayoutScheduled
		if err := s.repo.Create(ctx, p); err != nil {
			log.WithError(err).Error("auto payout: create failed")
			continue
		}
		created++
	}
	return created, nil
}
