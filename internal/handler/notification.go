package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/service"
)

// NotificationHandler serves the push notification endpoints.
type NotificationHandler struct {
	Notifications *service.NotificationService
	Log           *logrus.Logger
}

func NewNotificationHandler(n *service.NotificationService, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{Notifications: n, Log: log}
}

type sendReq struct {
	Audience string `json:"audience" validate:"omitempty,oneof=all students vendors"`
	Title    string `json:"title" validate:"required,max=120"`
	Body     string `json:"body" validate:"required,max=1000"`
}

// Send broadcasts an admin message.
func (h *NotificationHandler) Send(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req sendReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	n, err := h.Notifications.Broadcast(c.Request().Context(), actor, req.Audience, req.Title, req.Body)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, n)
}

type offerReq struct {
	Title string `json:"title" validate:"required,max=120"`
	Body  string `json:"body" validate:"required,max=1000"`
}

// VendorOffer messages the students of a vendor.
func (h *NotificationHandler) VendorOffer(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	vendorID, err := parseID(c, "vendorId")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req offerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	n, err := h.Notifications.VendorOffer(c.Request().Context(), actor, vendorID, req.Title, req.Body)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *NotificationHandler) History(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	list, err := h.Notifications.History(c.Request().Context(), actor, limit, offset)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": list})
}

func (h *NotificationHandler) Stats(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	st, err := h.Notifications.Stats(c.Request().Context(), actor)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

type tokenReq struct {
	Token string `json:"fcm_token" validate:"required,max=512"`
}

func (h *NotificationHandler) UpdateToken(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req tokenReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.Notifications.UpdateToken(c.Request().Context(), uid, req.Token); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Test pushes a test message to the caller's own device.
func (h *NotificationHandler) Test(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	n, err := h.Notifications.Test(c.Request().Context(), actor)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, n)
}
