package model

import "time"

// Roles carried in the JWT "role" claim.
const (
	RoleStudent = "STUDENT"
	RoleVendor  = "VENDOR"
	RoleAdmin   = "ADMIN"
)

// User mirrors a row of the `users` table.  FCMToken is the push token
// registered by the mobile or web client; it is empty until the client
// calls the update-token endpoint.
type User struct {
	ID           uint64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	FCMToken     *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models an entry of the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
