package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/service"
)

// PayoutHandler serves vendor payout settings and requests.
type PayoutHandler struct {
	Payouts *service.PayoutService
	Log     *logrus.Logger
}

func NewPayoutHandler(p *service.PayoutService, log *logrus.Logger) *PayoutHandler {
	return &PayoutHandler{Payouts: p, Log: log}
}

func (h *PayoutHandler) GetSettings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ps, err := h.Payouts.Settings(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ps)
}

type payoutSettingsReq struct {
	AutoPayout  bool   `json:"auto_payout"`
	Schedule    string `json:"schedule" validate:"required,oneof=weekly monthly"`
	MinAmount   int64  `json:"min_amount" validate:"min=0"`
	BankAccount string `json:"bank_account" validate:"max=34"`
	IFSC        string `json:"ifsc" validate:"omitempty,len=11"`
}

func (h *PayoutHandler) PutSettings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req payoutSettingsReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ps := &model.PayoutSettings{
		VendorID:    uid,
		AutoPayout:  req.AutoPayout,
		Schedule:    req.Schedule,
		MinAmount:   req.MinAmount,
		BankAccount: req.BankAccount,
		IFSC:        req.IFSC,
	}
	if err := h.Payouts.UpdateSettings(c.Request().Context(), ps); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ps)
}

// Request pays out everything collected since the previous payout.
func (h *PayoutHandler) Request(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := h.Payouts.Request(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PayoutHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Payouts.List(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payouts": list})
}
