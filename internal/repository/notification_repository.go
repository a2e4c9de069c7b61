package repository

import (
	"context"
	"database/sql"

	"github.com/stayseat/booking-api/internal/model"
)

// NotificationRepo records notification history.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create appends a history row.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	var sender sql.NullInt64
	if n.SenderID != nil {
		sender = sql.NullInt64{Int64: int64(*n.SenderID), Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO notifications (batch_id, type, title, body, sender_id, target_count, sent_count, opened_count, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		n.BatchID, n.Type, n.Title, n.Body, sender, n.TargetCount, n.SentCount, n.OpenedCount, n.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// List pages through history, newest first.  A zero senderID lists every
// sender.
func (r *NotificationRepo) List(ctx context.Context, senderID uint64, limit, offset int) ([]model.Notification, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, batch_id, type, title, body, sender_id, target_count, sent_count, opened_count, created_at
		 FROM notifications WHERE (?=0 OR sender_id=?) ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		senderID, senderID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var (
			n      model.Notification
			sender sql.NullInt64
		)
		if err := rows.Scan(&n.ID, &n.BatchID, &n.Type, &n.Title, &n.Body, &sender, &n.TargetCount,
			&n.SentCount, &n.OpenedCount, &n.CreatedAt); err != nil {
			return nil, err
		}
		if sender.Valid {
			v := uint64(sender.Int64)
			n.SenderID = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Stats aggregates the history of one sender, or all when senderID is 0.
func (r *NotificationRepo) Stats(ctx context.Context, senderID uint64) (model.NotificationStats, error) {
	var s model.NotificationStats
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(target_count),0), COALESCE(SUM(sent_count),0), COALESCE(SUM(opened_count),0)
		 FROM notifications WHERE (?=0 OR sender_id=?)`, senderID, senderID).
		Scan(&s.Total, &s.TotalTarget, &s.TotalSent, &s.TotalOpened)
	return s, err
}
