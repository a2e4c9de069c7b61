package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/utils"
)

// UserRepo reads and writes the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = "id, email, name, password_hash, role, fcm_token, is_active, created_at, updated_at"

func scanUser(sc interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u   model.User
		fcm sql.NullString
	)
	if err := sc.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &fcm, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.FCMToken = stringPtr(fcm)
	return &u, nil
}

// Create hashes the password and inserts a user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, email, name, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)",
		email, name, hash, role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateFCMToken stores the push token registered by a client.
func (r *UserRepo) UpdateFCMToken(ctx context.Context, id uint64, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET fcm_token=?, updated_at=CURRENT_TIMESTAMP WHERE id=?", token, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PushTarget is a user reachable by push notification.
type PushTarget struct {
	UserID uint64
	Token  string
}

// PushTargetsByRole lists active users of a role that registered a push
// token.  An empty role selects every role.
func (r *UserRepo) PushTargetsByRole(ctx context.Context, role string) ([]PushTarget, error) {
	return r.pushTargets(ctx,
		"SELECT id, fcm_token FROM users WHERE is_active=1 AND fcm_token IS NOT NULL AND (?='' OR role=?)",
		role, role)
}

// PushTargetsByIDs resolves push tokens for the given users.  Users without
// a token are skipped.
func (r *UserRepo) PushTargetsByIDs(ctx context.Context, ids []uint64) ([]PushTarget, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.pushTargets(ctx,
		"SELECT id, fcm_token FROM users WHERE is_active=1 AND fcm_token IS NOT NULL AND id IN ("+placeholders(len(ids))+")",
		args...)
}

func (r *UserRepo) pushTargets(ctx context.Context, q string, args ...any) ([]PushTarget, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PushTarget
	for rows.Next() {
		var t PushTarget
		if err := rows.Scan(&t.UserID, &t.Token); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
