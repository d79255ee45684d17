package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/bizmarket/internal/domain/inventory"
)

const saleLedgerOrderKey = "sale_ledger_order_id_key"

// PostgresInventoryStore stores products, the sale ledger and movement logs
type PostgresInventoryStore struct {
	db *sql.DB
}

var _ inventory.Store = (*PostgresInventoryStore)(nil)

func NewPostgresInventoryStore(db *sql.DB) *PostgresInventoryStore {
	return &PostgresInventoryStore{db: db}
}

func (s *PostgresInventoryStore) GetProduct(ctx context.Context, productID int64) (*inventory.Product, error) {
	var p inventory.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, seller_id, name, unit_price, stock, version, updated_at FROM products WHERE id = $1`,
		productID,
	).Scan(&p.ID, &p.SellerID, &p.Name, &p.UnitPrice, &p.Stock, &p.Version, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordSale applies one sale under a row lock on the product. The ledger
// insert runs before the stock update so a replay for the same order stops at
// the unique key before touching stock.
func (s *PostgresInventoryStore) RecordSale(ctx context.Context, entry *inventory.SaleLedgerEntry, movement *inventory.MovementLog) error {
	return execTx(ctx, s.db, func(tx *sql.Tx) error {
		var before int
		err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1 FOR UPDATE`,
			entry.ProductID,
		).Scan(&before)
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO sale_ledger (order_id, product_id, buyer_id, seller_id, quantity, unit_price, total_price, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			entry.OrderID, entry.ProductID, entry.BuyerID, entry.SellerID, entry.Quantity,
			entry.UnitPrice, entry.TotalPrice, entry.CreatedAt,
		).Scan(&entry.ID)
		if isUniqueViolation(err, saleLedgerOrderKey) {
			return inventory.ErrDuplicateSale
		}
		if err != nil {
			return fmt.Errorf("insert sale ledger: %w", err)
		}

		var after int
		err = tx.QueryRowContext(ctx,
			`UPDATE products SET stock = GREATEST(stock - $1, 0), updated_at = $2, version = version + 1
			 WHERE id = $3
			 RETURNING stock`,
			entry.Quantity, entry.CreatedAt, entry.ProductID,
		).Scan(&after)
		if err != nil {
			return fmt.Errorf("update product stock: %w", err)
		}

		movement.QuantityBefore = before
		movement.QuantityAfter = after
		err = tx.QueryRowContext(ctx,
			`INSERT INTO inventory_movements (product_id, seller_id, quantity_before, quantity_after, movement_type, reference, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			movement.ProductID, movement.SellerID, movement.QuantityBefore, movement.QuantityAfter,
			string(movement.Type), movement.Reference, movement.CreatedAt,
		).Scan(&movement.ID)
		if err != nil {
			return fmt.Errorf("insert inventory movement: %w", err)
		}
		return nil
	})
}

func (s *PostgresInventoryStore) ListMovements(ctx context.Context, productID int64, limit int) ([]inventory.MovementLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, seller_id, quantity_before, quantity_after, movement_type, reference, created_at
		 FROM inventory_movements
		 WHERE product_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		productID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inventory.MovementLog
	for rows.Next() {
		var m inventory.MovementLog
		if err := rows.Scan(&m.ID, &m.ProductID, &m.SellerID, &m.QuantityBefore, &m.QuantityAfter, &m.Type, &m.Reference, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
