package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/middleware"
	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/repository"
	"github.com/stayseat/booking-api/internal/scheduler"
	"github.com/stayseat/booking-api/internal/service"
)

// getUserID returns the authenticated caller set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok || id == 0 {
		return 0, errors.New("user_id missing")
	}
	return id, nil
}

func actorFrom(c echo.Context) (service.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return service.Actor{UserID: id, Role: role}, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

// bookingView adds the derived display status to a booking.
type bookingView struct {
	*model.Booking
	DisplayStatus string `json:"display_status"`
}

func viewBooking(b *model.Booking, now time.Time) bookingView {
	return bookingView{Booking: b, DisplayStatus: b.DisplayStatus(now)}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrUnknownCategory),
		errors.Is(err, scheduler.ErrUnknownJob):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, service.ErrUnitNotAvailable), errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, service.ErrBookingCancelled), errors.Is(err, service.ErrDueNotPending),
		errors.Is(err, service.ErrPaymentReused):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrOverCollection), errors.Is(err, service.ErrSameUnit),
		errors.Is(err, service.ErrDateOutsideBooking), errors.Is(err, service.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoDeposit), errors.Is(err, service.ErrNothingToPay),
		errors.Is(err, service.ErrNoPushToken):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPaymentUnverified):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error.  Unexpected errors are logged and
// hidden from the client.
func fail(c echo.Context, log *logrus.Logger, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		}).Error("request failed")
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
