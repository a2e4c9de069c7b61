package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/scheduler"
	"github.com/stayseat/booking-api/internal/service"
)

// AdminHandler serves platform settings and background job controls.
type AdminHandler struct {
	Settings *service.SettingsService
	Jobs     *scheduler.Scheduler
	Log      *logrus.Logger
}

func NewAdminHandler(s *service.SettingsService, jobs *scheduler.Scheduler, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{Settings: s, Jobs: jobs, Log: log}
}

func (h *AdminHandler) GetSettings(c echo.Context) error {
	rec, err := h.Settings.Get(c.Request().Context(), c.Param("category"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// PutSettings replaces a category record with the JSON body.
func (h *AdminHandler) PutSettings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, 64<<10))
	if err != nil || !json.Valid(raw) {
		return badRequest(c, "invalid body")
	}
	rec, err := h.Settings.Put(c.Request().Context(), c.Param("category"), raw, uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.WithFields(logrus.Fields{"category": rec.Category, "admin_id": uid}).Info("settings updated")
	return c.JSON(http.StatusOK, rec)
}

func (h *AdminHandler) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"jobs": h.Jobs.Status()})
}

// RunJob triggers a background job immediately.
func (h *AdminHandler) RunJob(c echo.Context) error {
	n, err := h.Jobs.RunNow(c.Param("name"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"job": c.Param("name"), "handled": n})
}
