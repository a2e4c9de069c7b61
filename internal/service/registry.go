package service

import (
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/queue"
	"github.com/stayseat/booking-api/internal/repository"
)

// KindServices groups the services bound to one inventory kind.
type KindServices struct {
	Inventory Inventory
	Payments  *PaymentService
	Reports   *ReportService
}

// Deps are the shared collaborators of every service.
type Deps struct {
	DB            *sql.DB
	Publisher     queue.Publisher
	Log           *logrus.Logger
	Validate      *validator.Validate
	PaymentSecret string
	CommissionPct int
}

// Registry wires the services of every inventory kind together with the
// platform-wide ones.
type Registry struct {
	kinds         map[model.Kind]*KindServices
	Settings      *SettingsService
	Payouts       *PayoutService
	Notifications *NotificationService
}

func NewRegistry(d Deps) *Registry {
	r := &Registry{kinds: make(map[model.Kind]*KindServices)}
	r.Settings = NewSettingsService(repository.NewSettingRepo(d.DB), d.Validate, d.PaymentSecret, d.CommissionPct)
	r.Notifications = NewNotificationService(repository.NewNotificationRepo(d.DB), repository.NewUserRepo(d.DB), d.Publisher, d.Log)

	var revenue []revenueSource
	for _, kind := range model.Kinds {
		bookings := repository.NewBookingRepo(d.DB, kind)
		payments := NewPaymentService(d.DB, kind, d.Publisher, d.Log)
		payments.keys = r.Settings
		r.kinds[kind] = &KindServices{
			Inventory: NewInventory(d.DB, kind, d.Publisher, d.Log),
			Payments:  payments,
			Reports:   NewReportService(kind, bookings, repository.NewTransferRepo(d.DB, kind)),
		}
		revenue = append(revenue, repository.NewReceiptRepo(d.DB, kind))
		r.Notifications.AddKind(bookings, repository.NewDueRepo(d.DB, kind))
	}
	r.Payouts = NewPayoutService(repository.NewPayoutRepo(d.DB), r.Settings, d.Log, revenue...)
	return r
}

// For returns the services of a kind.
func (r *Registry) For(kind model.Kind) (*KindServices, bool) {
	ks, ok := r.kinds[kind]
	return ks, ok
}
