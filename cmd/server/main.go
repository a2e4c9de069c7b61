package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/config"
	"github.com/stayseat/booking-api/internal/database"
	"github.com/stayseat/booking-api/internal/handler"
	"github.com/stayseat/booking-api/internal/middleware"
	"github.com/stayseat/booking-api/internal/queue"
	"github.com/stayseat/booking-api/internal/repository"
	"github.com/stayseat/booking-api/internal/router"
	"github.com/stayseat/booking-api/internal/scheduler"
	"github.com/stayseat/booking-api/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg := config.Load()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	logger.Info("database connection established")

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub := queue.NewAMQPPublisher(cfg.AMQPURL, logger)
		defer amqpPub.Close()
		pub = amqpPub
	} else {
		logger.Warn("RABBITMQ_URL not set; booking events and push messages are dropped")
	}

	validate := validator.New()
	reg := service.NewRegistry(service.Deps{
		DB:            db,
		Publisher:     pub,
		Log:           logger,
		Validate:      validate,
		PaymentSecret: cfg.PaymentKeySecret,
		CommissionPct: cfg.CommissionPct,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AMQPURL != "" {
		consumer := &queue.Consumer{
			URL:    cfg.AMQPURL,
			Queue:  queue.BookingEventsQueue,
			Handle: reg.Notifications.HandleBookingEvent,
			Log:    logger,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("booking event consumer stopped")
			}
		}()
	}

	jobs := scheduler.New(logger)
	if err := jobs.Add(scheduler.JobAutoPayout, cfg.AutoPayoutSpec, reg.Payouts.RunAuto); err != nil {
		logger.WithError(err).Fatal("scheduler setup failed")
	}
	if err := jobs.Add(scheduler.JobDueReminder, cfg.DueReminderSpec, reg.Notifications.SendDueReminders); err != nil {
		logger.WithError(err).Fatal("scheduler setup failed")
	}
	jobs.Start()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator(validate)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	router.Register(e, router.Deps{
		DB:            db,
		JWTSecret:     cfg.JWTSecret,
		Auth:          handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), logger),
		Bookings:      handler.NewBookingHandler(reg, logger),
		Payouts:       handler.NewPayoutHandler(reg.Payouts, logger),
		Notifications: handler.NewNotificationHandler(reg.Notifications, logger),
		Admin:         handler.NewAdminHandler(reg.Settings, jobs, logger),
		Cache:         middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.Env}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	jobs.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("forced shutdown")
	}
	logger.Info("server exited")
}
