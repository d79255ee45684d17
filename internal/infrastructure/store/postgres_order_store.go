package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/bizmarket/internal/domain/order"
)

// PostgresOrderStore stores orders in PostgreSQL
type PostgresOrderStore struct {
	db *sql.DB
}

var _ order.Store = (*PostgresOrderStore)(nil)

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

const orderColumns = `id, buyer_id, seller_id, product_id, product_name, quantity, unit_price, total_price,
	status, created_at, updated_at, prepared_at, shipped_at, delivered_at, received_at, version`

func (s *PostgresOrderStore) Create(ctx context.Context, o *order.Order) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO orders (buyer_id, seller_id, product_id, product_name, quantity, unit_price, total_price,
			status, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		 RETURNING id, version`,
		o.BuyerID, o.SellerID, o.ProductID, o.ProductName, o.Quantity, o.UnitPrice, o.TotalPrice,
		string(o.Status), o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID, &o.Version)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) Get(ctx context.Context, orderID int64) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Save updates the mutable columns guarded by the version the order was loaded with.
func (s *PostgresOrderStore) Save(ctx context.Context, o *order.Order) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, updated_at = $2, prepared_at = $3, shipped_at = $4, delivered_at = $5,
			received_at = $6, version = version + 1
		 WHERE id = $7 AND version = $8`,
		string(o.Status), o.UpdatedAt, o.PreparedAt, o.ShippedAt, o.DeliveredAt, o.ReceivedAt,
		o.ID, o.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return order.ErrOrderNotFound
		}
		return order.ErrConflict
	}

	o.Version++
	return nil
}

func (s *PostgresOrderStore) ListByBuyer(ctx context.Context, buyerID int64) ([]order.Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (s *PostgresOrderStore) ListBySeller(ctx context.Context, sellerID int64) ([]order.Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE seller_id = $1 ORDER BY created_at DESC, id DESC`, sellerID)
}

func (s *PostgresOrderStore) list(ctx context.Context, query string, userID int64) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.SellerID, &o.ProductID, &o.ProductName, &o.Quantity, &o.UnitPrice, &o.TotalPrice,
		&o.Status, &o.CreatedAt, &o.UpdatedAt, &o.PreparedAt, &o.ShippedAt, &o.DeliveredAt, &o.ReceivedAt, &o.Version,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
