package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/domain"
)

type NotificationStore struct {
	db *sqlx.DB
}

func NewNotificationStore(db *sqlx.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Notify(ctx context.Context, userID int64, title, body string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO notifications (user_id, title, body) VALUES (?, ?, ?)`, userID, title, body); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]domain.Notification, error) {
	query := `SELECT id, user_id, title, body, is_read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY id DESC`

	notifications := []domain.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return affected(res)
}
