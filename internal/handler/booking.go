package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/service"
)

// BookingHandler serves the per-kind booking endpoints under /api/:kind.
type BookingHandler struct {
	Services *service.Registry
	Log      *logrus.Logger
	now      func() time.Time
}

func NewBookingHandler(reg *service.Registry, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{Services: reg, Log: log, now: time.Now}
}

// kindServices resolves the :kind path segment.  Unknown kinds are 404.
func kindServices(c echo.Context, reg *service.Registry) (*service.KindServices, error) {
	kind, ok := model.ParseKind(c.Param("kind"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown inventory kind")
	}
	ks, ok := reg.For(kind)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown inventory kind")
	}
	return ks, nil
}

// ListUnits returns every unit of a cabin or hostel room.
func (h *BookingHandler) ListUnits(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	parentID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	units, err := ks.Inventory.ListUnits(c.Request().Context(), parentID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"units": units})
}

// Availability returns the units free for [start, end].
func (h *BookingHandler) Availability(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	parentID, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	start, err := parseDate(c.QueryParam("start"))
	if err != nil {
		return badRequest(c, "start must be YYYY-MM-DD")
	}
	end, err := parseDate(c.QueryParam("end"))
	if err != nil {
		return badRequest(c, "end must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return fail(c, h.Log, service.ErrInvalidRange)
	}
	units, err := ks.Inventory.CheckAvailability(c.Request().Context(), parentID, start, end)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"start_date": start.Format(time.DateOnly),
		"end_date":   end.Format(time.DateOnly),
		"units":      units,
	})
}

type reserveReq struct {
	UnitID        uint64 `json:"unit_id" validate:"required"`
	UserID        uint64 `json:"user_id"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	DurationType  string `json:"duration_type" validate:"omitempty,oneof=daily weekly monthly"`
	DurationCount int    `json:"duration_count" validate:"omitempty,min=1"`
	TotalPrice    int64  `json:"total_price" validate:"min=0"`
	AdvanceAmount int64  `json:"advance_amount" validate:"min=0"`
	LockerDeposit int64  `json:"locker_deposit" validate:"min=0"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=online cash upi card"`
	PaymentID     string `json:"payment_id" validate:"max=64"`
}

// Create books a unit.  Students book for themselves; vendors and admins
// may book at the desk on behalf of user_id.
func (h *BookingHandler) Create(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	start, _ := parseDate(req.StartDate)
	end, _ := parseDate(req.EndDate)

	res, err := ks.Inventory.Reserve(c.Request().Context(), service.ReserveRequest{
		Actor:         actor,
		UnitID:        req.UnitID,
		UserID:        req.UserID,
		StartDate:     start,
		EndDate:       end,
		DurationType:  req.DurationType,
		DurationCount: req.DurationCount,
		TotalPrice:    req.TotalPrice,
		AdvanceAmount: req.AdvanceAmount,
		LockerDeposit: req.LockerDeposit,
		PaymentMethod: req.PaymentMethod,
		PaymentID:     req.PaymentID,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking": viewBooking(res.Booking, h.now()),
		"receipt": res.Receipt,
		"due":     res.Due,
	})
}

// Mine lists the caller's bookings of this kind.
func (h *BookingHandler) Mine(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := ks.Inventory.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	now := h.now()
	out := make([]bookingView, 0, len(list))
	for i := range list {
		out = append(out, viewBooking(&list[i], now))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

func (h *BookingHandler) Get(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	b, err := ks.Inventory.Get(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, viewBooking(b, h.now()))
}

// Receipts lists the receipts issued against a booking.
func (h *BookingHandler) Receipts(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	receipts, err := ks.Inventory.Receipts(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"receipts": receipts})
}

type blockReq struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

// BlockUnit sets or clears the block flag of a unit.
func (h *BookingHandler) BlockUnit(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req blockReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	u, err := ks.Inventory.SetBlocked(c.Request().Context(), actor, id, *req.Blocked)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, u)
}

type cancelReq struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Cancel cancels a booking.  Repeating it reports already_cancelled.
func (h *BookingHandler) Cancel(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req cancelReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	res, err := ks.Inventory.Release(c.Request().Context(), service.CancelRequest{Actor: actor, BookingID: id, Reason: req.Reason})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":           viewBooking(res.Booking, h.now()),
		"already_cancelled": res.AlreadyCancelled,
		"dues_cancelled":    res.DuesCancelled,
	})
}

type transferReq struct {
	ToUnitID uint64 `json:"to_unit_id" validate:"required"`
	Reason   string `json:"reason" validate:"max=500"`
}

// Transfer moves a booking to another unit of the same kind.
func (h *BookingHandler) Transfer(c echo.Context) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req transferReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	b, err := ks.Inventory.Transfer(c.Request().Context(), service.TransferRequest{
		Actor: actor, BookingID: id, ToUnitID: req.ToUnitID, Reason: req.Reason,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, viewBooking(b, h.now()))
}
