package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/stayseat/booking-api/internal/model"
)

// SettingRepo stores admin provider configuration as JSON documents keyed
// by category.
type SettingRepo struct{ DB *sql.DB }

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{DB: db} }

// Get returns the record of a category or ErrNotFound.
func (r *SettingRepo) Get(ctx context.Context, category string) (*model.Setting, error) {
	var (
		s   model.Setting
		raw []byte
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT category, value, updated_by, updated_at FROM settings WHERE category=?", category).
		Scan(&s.Category, &raw, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Value = raw
	return &s, nil
}

// Upsert replaces the record of a category.
func (r *SettingRepo) Upsert(ctx context.Context, s *model.Setting) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO settings (category, value, updated_by, updated_at) VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE value=VALUES(value), updated_by=VALUES(updated_by), updated_at=VALUES(updated_at)`,
		s.Category, []byte(s.Value), s.UpdatedBy, s.UpdatedAt)
	return err
}
