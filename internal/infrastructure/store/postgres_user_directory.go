package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/bizmarket/internal/notification"
)

// PostgresUserDirectory resolves email recipients from the users table
type PostgresUserDirectory struct {
	db *sql.DB
}

var _ notification.Directory = (*PostgresUserDirectory)(nil)

func NewPostgresUserDirectory(db *sql.DB) *PostgresUserDirectory {
	return &PostgresUserDirectory{db: db}
}

func (d *PostgresUserDirectory) GetRecipient(ctx context.Context, userID int64) (*notification.Recipient, error) {
	var r notification.Recipient
	err := d.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`, userID,
	).Scan(&r.ID, &r.Name, &r.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notification.ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
