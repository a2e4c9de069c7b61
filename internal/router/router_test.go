package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayseat/booking-api/internal/config"
	"github.com/stayseat/booking-api/internal/handler"
	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/queue"
	"github.com/stayseat/booking-api/internal/repository"
	"github.com/stayseat/booking-api/internal/scheduler"
	"github.com/stayseat/booking-api/internal/service"
	"github.com/stayseat/booking-api/internal/utils"
)

const secret = "router-test-secret"

func newServer(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	v := validator.New()
	reg := service.NewRegistry(service.Deps{DB: db, Publisher: queue.NopPublisher{}, Log: log, Validate: v, CommissionPct: 10})
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}

	e := echo.New()
	e.Validator = handler.NewRequestValidator(v)
	Register(e, Deps{
		Auth:          handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log),
		JWTSecret:     secret,
		Bookings:      handler.NewBookingHandler(reg, log),
		Payouts:       handler.NewPayoutHandler(reg.Payouts, log),
		Notifications: handler.NewNotificationHandler(reg.Notifications, log),
		Admin:         handler.NewAdminHandler(reg.Settings, scheduler.New(log), log),
	})
	return e, mock
}

func call(t *testing.T, e *echo.Echo, method, path string, userID uint64, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		tok, err := utils.NewAccessToken(secret, userID, role, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e, _ := newServer(t)
	rec := call(t, e, http.MethodGet, "/healthz", 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e, mock := newServer(t)
	for _, path := range []string{
		"/api/me",
		"/api/cabin/bookings/mine",
		"/api/hostel/reports/deposits.csv",
		"/api/payouts",
		"/api/notifications/history",
		"/api/admin/settings/payment",
	} {
		rec := call(t, e, http.MethodGet, path, 0, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleGates(t *testing.T) {
	e, mock := newServer(t)
	cases := []struct {
		method string
		path   string
		role   string
	}{
		{http.MethodPost, "/api/cabin/bookings/5/transfer", model.RoleStudent},
		{http.MethodPost, "/api/hostel/dues/9/collect", model.RoleStudent},
		{http.MethodGet, "/api/cabin/reports/transfers.csv", model.RoleStudent},
		{http.MethodPut, "/api/cabin/units/7/block", model.RoleStudent},
		{http.MethodGet, "/api/payouts/settings", model.RoleStudent},
		{http.MethodGet, "/api/payouts", model.RoleAdmin},
		{http.MethodPost, "/api/notifications/send", model.RoleVendor},
		{http.MethodGet, "/api/admin/settings/payment", model.RoleVendor},
		{http.MethodGet, "/api/admin/jobs", model.RoleStudent},
	}
	for _, tc := range cases {
		rec := call(t, e, tc.method, tc.path, 42, tc.role)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.method+" "+tc.path)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownKindIsNotFound(t *testing.T) {
	e, mock := newServer(t)
	rec := call(t, e, http.MethodGet, "/api/flat/bookings/mine", 42, model.RoleStudent)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(t, e, http.MethodGet, "/api/flat/rooms/1/units", 0, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMineRoutesToKindTables(t *testing.T) {
	e, mock := newServer(t)
	mock.ExpectQuery(`SELECT .* FROM hostel_bookings WHERE user_id = \?`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := call(t, e, http.MethodGet, "/api/hostel/bookings/mine", 42, model.RoleStudent)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookings":[]}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminListsJobs(t *testing.T) {
	e, _ := newServer(t)
	rec := call(t, e, http.MethodGet, "/api/admin/jobs", 1, model.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
}
