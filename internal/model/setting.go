package model

import (
	"encoding/json"
	"time"
)

// Setting categories managed by admins.
const (
	SettingEmail   = "email"
	SettingSMS     = "sms"
	SettingPayment = "payment"
)

// Setting is a backend-persisted provider configuration record.
type Setting struct {
	Category  string          `json:"category"`
	Value     json.RawMessage `json:"value"`
	UpdatedBy uint64          `json:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EmailSettings configures the outbound mail provider.
type EmailSettings struct {
	Provider  string `json:"provider" validate:"required,oneof=smtp mailgun"`
	Host      string `json:"host" validate:"required_if=Provider smtp"`
	Port      int    `json:"port" validate:"omitempty,min=1,max=65535"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Domain    string `json:"domain" validate:"required_if=Provider mailgun"`
	APIKey    string `json:"api_key" validate:"required_if=Provider mailgun"`
	FromEmail string `json:"from_email" validate:"required,email"`
}

// SMSSettings configures the SMS provider.
type SMSSettings struct {
	Provider   string `json:"provider" validate:"required,oneof=twilio msg91"`
	AccountSID string `json:"account_sid" validate:"required"`
	AuthToken  string `json:"auth_token" validate:"required"`
	SenderID   string `json:"sender_id" validate:"required"`
	Enabled    bool   `json:"enabled"`
}

// PaymentSettings configures the payment gateway and platform commission.
type PaymentSettings struct {
	Provider      string `json:"provider" validate:"required,oneof=razorpay"`
	KeyID         string `json:"key_id" validate:"required"`
	KeySecret     string `json:"key_secret" validate:"required"`
	CommissionPct int    `json:"commission_pct" validate:"min=0,max=100"`
}
