package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/service"
)

type verifyReq struct {
	Kind      string `json:"kind" validate:"required,oneof=cabin hostel"`
	BookingID uint64 `json:"booking_id" validate:"required"`
	OrderID   string `json:"razorpay_order_id" validate:"required,max=64"`
	PaymentID string `json:"razorpay_payment_id" validate:"required,max=64"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment completes a booking after a gateway checkout.  A bad
// signature answers 402 and leaves the booking for manual reconciliation.
func (h *BookingHandler) VerifyPayment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req verifyReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	kind, _ := model.ParseKind(req.Kind)
	ks, ok := h.Services.For(kind)
	if !ok {
		return badRequest(c, "unknown kind")
	}
	res, err := ks.Payments.VerifyPayment(c.Request().Context(), service.VerifyRequest{
		Actor:     actor,
		BookingID: req.BookingID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":           viewBooking(res.Booking, h.now()),
		"receipt":           res.Receipt,
		"already_completed": res.AlreadyCompleted,
	})
}

type collectReq struct {
	Amount int64  `json:"amount" validate:"required,min=1"`
	Method string `json:"method" validate:"omitempty,oneof=cash upi card online"`
}

// CollectDue records a desk payment against a dues row.
func (h *BookingHandler) CollectDue(c echo.Context) error {
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
	var req collectReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	res, err := ks.Payments.CollectDue(c.Request().Context(), service.CollectDueRequest{
		Actor: actor, DueID: id, Amount: req.Amount, Method: req.Method,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"due":     res.Due,
		"receipt": res.Receipt,
		"booking": viewBooking(res.Booking, h.now()),
	})
}

type proportionalEndReq struct {
	Date string `json:"proportional_end_date" validate:"required,datetime=2006-01-02"`
}

// SetProportionalEnd records an early exit on a dues row.
func (h *BookingHandler) SetProportionalEnd(c echo.Context) error {
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
	var req proportionalEndReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	date, _ := parseDate(req.Date)
	d, err := ks.Payments.SetProportionalEndDate(c.Request().Context(), actor, id, date)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// RefundDeposit marks a locker deposit refunded, once.
func (h *BookingHandler) RefundDeposit(c echo.Context) error {
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
	res, err := ks.Payments.RefundDeposit(c.Request().Context(), actor, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking":          viewBooking(res.Booking, h.now()),
		"already_refunded": res.AlreadyRefunded,
	})
}

// DepositsCSV exports the locker deposit ledger.
func (h *BookingHandler) DepositsCSV(c echo.Context) error {
	return h.writeCSV(c, "deposits", (*service.ReportService).WriteDeposits)
}

// TransfersCSV exports the transfer audit trail.
func (h *BookingHandler) TransfersCSV(c echo.Context) error {
	return h.writeCSV(c, "transfers", (*service.ReportService).WriteTransfers)
}

type reportFunc func(r *service.ReportService, ctx context.Context, a service.Actor, w io.Writer) error

// writeCSV renders a report into memory first so that a failed query
// still yields a JSON error instead of a truncated file.
func (h *BookingHandler) writeCSV(c echo.Context, name string, report reportFunc) error {
	ks, err := kindServices(c, h.Services)
	if err != nil {
		return err
	}
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var buf bytes.Buffer
	if err := report(ks.Reports, c.Request().Context(), actor, &buf); err != nil {
		return fail(c, h.Log, err)
	}
	filename := c.Param("kind") + "-" + name + "-" + h.now().UTC().Format("20060102") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
