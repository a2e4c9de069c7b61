package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/repository"
)

// SettingsService manages admin provider configuration.
type SettingsService struct {
	repo     *repository.SettingRepo
	validate *validator.Validate

	// Fallbacks used while no payment record exists.
	defaultSecret     string
	defaultCommission int

	now func() time.Time
}

func NewSettingsService(repo *repository.SettingRepo, v *validator.Validate, secret string, commissionPct int) *SettingsService {
	return &SettingsService{
		repo:              repo,
		validate:          v,
		defaultSecret:     secret,
		defaultCommission: commissionPct,
		now:               time.Now,
	}
}

func settingTarget(category string) (any, error) {
	switch category {
	case model.SettingEmail:
		return &model.EmailSettings{}, nil
	case model.SettingSMS:
		return &model.SMSSettings{}, nil
	case model.SettingPayment:
		return &model.PaymentSettings{}, nil
	}
	return nil, ErrUnknownCategory
}

// Get returns the stored record of a category.
func (s *SettingsService) Get(ctx context.Context, category string) (*model.Setting, error) {
	if _, err := settingTarget(category); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, category)
}

// Put validates and stores a category record.  Unknown fields are
// rejected and the stored document is the canonical re-encoding.
func (s *SettingsService) Put(ctx context.Context, category string, raw json.RawMessage, adminID uint64) (*model.Setting, error) {
	target, err := settingTarget(category)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := s.validate.Struct(target); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	canonical, err := json.Marshal(target)
	if err != nil {
		return nil, err
	}
	rec := &model.Setting{
		Category:  category,
		Value:     canonical,
		UpdatedBy: adminID,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Payment returns the payment settings, falling back to the process
// defaults when none were saved.
func (s *SettingsService) Payment(ctx context.Context) (model.PaymentSettings, error) {
	ps := model.PaymentSettings{
		Provider:      "razorpay",
		KeySecret:     s.defaultSecret,
		CommissionPct: s.defaultCommission,
	}
	rec, err := s.repo.Get(ctx, model.SettingPayment)
	if errors.Is(err, repository.ErrNotFound) {
		return ps, nil
	}
	if err != nil {
		return ps, err
	}
	if err := json.Unmarshal(rec.Value, &ps); err != nil {
		return ps, fmt.Errorf("decode payment settings: %w", err)
	}
	if ps.KeySecret == "" {
		ps.KeySecret = s.defaultSecret
	}
	return ps, nil
}
