package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/bizmarket/internal/notification"
)

// PostgresNotificationStore keeps the notification inbox in PostgreSQL
type PostgresNotificationStore struct {
	db *sql.DB
}

var _ notification.Store = (*PostgresNotificationStore)(nil)

func NewPostgresNotificationStore(db *sql.DB) *PostgresNotificationStore {
	return &PostgresNotificationStore{db: db}
}

func (s *PostgresNotificationStore) Create(ctx context.Context, n *notification.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, title, message, link, category, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.RecipientID, n.Title, n.Message, n.Link, n.Category, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresNotificationStore) ListForUser(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]notification.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient_id, title, message, link, category, is_read, created_at
		 FROM notifications
		 WHERE recipient_id = $1 AND (NOT $2 OR NOT is_read)
		 ORDER BY created_at DESC
		 LIMIT $3`,
		recipientID, unreadOnly, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Link, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresNotificationStore) MarkRead(ctx context.Context, recipientID int64, notificationID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`,
		notificationID, recipientID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notification.ErrNotFound
	}
	return nil
}
