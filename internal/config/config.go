// Package config loads runtime configuration from environment variables.
// A .env file in the working directory, when present, is loaded first and
// never overrides variables already set in the process environment.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process-wide settings.
type Config struct {
	Env            string
	Port           string
	LogLevel       string
	DBUser         string
	DBPass         string
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	// AMQPURL is the RabbitMQ broker.  Empty disables publishing and the
	// in-process consumer.
	AMQPURL string

	// PaymentKeySecret verifies gateway signatures when the admin payment
	// settings do not carry a secret of their own.
	PaymentKeySecret string

	// CommissionPct is the platform share applied to payouts when the
	// admin payment settings are missing.
	CommissionPct int

	// Cron specs (seconds field included).
	AutoPayoutSpec  string
	DueReminderSpec string
}

// Load reads the configuration.  Missing required variables abort the
// process.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:              getenv("APP_ENV", "dev"),
		Port:             must("APP_PORT"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"),
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTSecret:        must("JWT_SECRET"),
		AccessTTLMin:     mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:   mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:       envInt("BCRYPT_COST", 12),
		AMQPURL:          firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
		PaymentKeySecret: os.Getenv("PAYMENT_KEY_SECRET"),
		CommissionPct:    envInt("PLATFORM_COMMISSION_PCT", 10),
		AutoPayoutSpec:   getenv("CRON_AUTO_PAYOUT", "0 30 1 * * *"),
		DueReminderSpec:  getenv("CRON_DUE_REMINDER", "0 0 9 * * *"),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
