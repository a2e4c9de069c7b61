package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/stayseat/booking-api/internal/handler"
	"github.com/stayseat/booking-api/internal/middleware"
	"github.com/stayseat/booking-api/internal/model"
)

// Deps carries everything the route table needs.
type Deps struct {
	DB            *sql.DB
	JWTSecret     string
	Auth          *handler.AuthHandler
	Bookings      *handler.BookingHandler
	Payouts       *handler.PayoutHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler

	// Cache fronts public unit listings; RateLimit guards booking writes.
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// Register mounts the whole API on e.
func Register(e *echo.Echo, d Deps) {
	if d.Cache == nil {
		d.Cache = passThrough
	}
	if d.RateLimit == nil {
		d.RateLimit = passThrough
	}
	e.GET("/healthz", handler.Health(d.DB))

	auth := middleware.JWTAuth(d.JWTSecret)
	staff := middleware.RequireRole(model.RoleVendor, model.RoleAdmin)
	anyRole := middleware.RequireRole(model.RoleStudent, model.RoleVendor, model.RoleAdmin)

	api := e.Group("/api")

	a := api.Group("/auth")
	a.POST("/register", d.Auth.Register)
	a.POST("/login", d.Auth.Login)
	a.POST("/refresh", d.Auth.Refresh)
	a.POST("/logout", d.Auth.Logout, auth)
	api.GET("/me", d.Auth.Me, auth)

	k := api.Group("/:kind")
	k.GET("/rooms/:id/units", d.Bookings.ListUnits, d.Cache)
	k.GET("/rooms/:id/availability", d.Bookings.Availability)

	kb := k.Group("", auth, anyRole)
	kb.POST("/bookings", d.Bookings.Create, d.RateLimit)
	kb.GET("/bookings/mine", d.Bookings.Mine)
	kb.GET("/bookings/:id", d.Bookings.Get)
	kb.GET("/bookings/:id/receipts", d.Bookings.Receipts)
	kb.POST("/bookings/:id/cancel", d.Bookings.Cancel)

	ks := k.Group("", auth, staff)
	ks.POST("/bookings/:id/transfer", d.Bookings.Transfer)
	ks.POST("/bookings/:id/deposit-refund", d.Bookings.RefundDeposit)
	ks.POST("/dues/:id/collect", d.Bookings.CollectDue)
	ks.PUT("/dues/:id/proportional-end", d.Bookings.SetProportionalEnd)
	ks.PUT("/units/:id/block", d.Bookings.BlockUnit)
	ks.GET("/reports/deposits.csv", d.Bookings.DepositsCSV)
	ks.GET("/reports/transfers.csv", d.Bookings.TransfersCSV)

	api.POST("/payments/verify", d.Bookings.VerifyPayment, auth, anyRole, d.RateLimit)

	p := api.Group("/payouts", auth, middleware.RequireRole(model.RoleVendor))
	p.GET("/settings", d.Payouts.GetSettings)
	p.PUT("/settings", d.Payouts.PutSettings)
	p.POST("/request", d.Payouts.Request)
	p.GET("", d.Payouts.List)

	n := api.Group("/notifications", auth)
	n.POST("/send", d.Notifications.Send, middleware.RequireRole(model.RoleAdmin))
	n.POST("/vendor-offer/:vendorId", d.Notifications.VendorOffer, staff)
	n.GET("/history", d.Notifications.History, staff)
	n.GET("/stats", d.Notifications.Stats, staff)
	n.POST("/update-token", d.Notifications.UpdateToken, anyRole)
	n.POST("/test", d.Notifications.Test, anyRole)

	ad := api.Group("/admin", auth, middleware.RequireRole(model.RoleAdmin))
	ad.GET("/settings/:category", d.Admin.GetSettings)
	ad.PUT("/settings/:category", d.Admin.PutSettings)
	ad.GET("/jobs", d.Admin.ListJobs)
	ad.POST("/jobs/:name/run", d.Admin.RunJob)
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
