package inventory

import (
	"context"
	"fmt"
)

const (
	DefaultMovementLimit = 50
	MaxMovementLimit     = 200
)

// Movements returns the product's most recent movement rows, newest first.
// Only the product's seller may read them. A non-positive limit means
// DefaultMovementLimit; larger limits are capped at MaxMovementLimit.
func (r *Reducer) Movements(ctx context.Context, productID, actingUserID int64, limit int) ([]MovementLog, error) {
	p, err := r.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.SellerID != actingUserID {
		return nil, ErrForbidden
	}

	switch {
	case limit <= 0:
		limit = DefaultMovementLimit
	case limit > MaxMovementLimit:
		limit = MaxMovementLimit
	}
	movements, err := r.store.ListMovements(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list movements for product %d: %w", productID, err)
	}
	return movements, nil
}
