package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/bizmarket/internal/domain/inventory"
	"github.com/example/bizmarket/internal/infrastructure/store/mocks"
)

var fixedNow = time.Date(2025, 5, 2, 14, 30, 0, 0, time.UTC)

func newReducer(t *testing.T, stock int) (*inventory.Reducer, *mocks.MockInventoryStore, *mocks.MockPusher, *observer.ObservedLogs) {
	t.Helper()

	store := mocks.NewMockInventoryStore()
	store.PutProduct(inventory.Product{
		ID:        7,
		SellerID:  20,
		Name:      "Olive Oil",
		UnitPrice: decimal.RequireFromString("8.50"),
		Stock:     stock,
		Version:   3,
	})
	pusher := &mocks.MockPusher{}
	core, logs := observer.New(zapcore.DebugLevel)

	r := inventory.NewReducer(store, pusher, zap.New(core)).WithClock(func() time.Time { return fixedNow })
	return r, store, pusher, logs
}

func sale(orderID int64, qty int) inventory.Sale {
	unit := decimal.RequireFromString("8.50")
	return inventory.Sale{
		OrderID:    orderID,
		ProductID:  7,
		BuyerID:    10,
		SellerID:   20,
		Quantity:   qty,
		UnitPrice:  unit,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func TestReduceInventory_DecrementsAndRecords(t *testing.T) {
	r, store, pusher, _ := newReducer(t, 10)

	require.NoError(t, r.ReduceInventory(context.Background(), sale(1, 4)))

	p := store.Product(7)
	assert.Equal(t, 6, p.Stock)
	assert.Equal(t, 4, p.Version)
	assert.Equal(t, fixedNow, p.UpdatedAt)

	ledger := store.Ledger()
	require.Len(t, ledger, 1)
	assert.Equal(t, int64(1), ledger[0].OrderID)
	assert.Equal(t, int64(10), ledger[0].BuyerID)
	assert.Equal(t, 4, ledger[0].Quantity)
	assert.Equal(t, "34.00", ledger[0].TotalPrice.StringFixed(2))
	assert.Equal(t, fixedNow, ledger[0].CreatedAt)

	movements := store.Movements()
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.MovementLog{
		ID:             1,
		ProductID:      7,
		SellerID:       20,
		QuantityBefore: 10,
		QuantityAfter:  6,
		Type:           inventory.MovementSale,
		Reference:      "Order #1",
		CreatedAt:      fixedNow,
	}, movements[0])

	calls := pusher.PushCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(20), calls[0].RecipientID)
	pushed, ok := calls[0].Payload.(inventory.MovementPushed)
	require.True(t, ok)
	assert.Equal(t, "inventory.movement", pushed.Type)
	assert.Equal(t, 6, pushed.Movement.QuantityAfter)
}

func TestReduceInventory_ClampsAtZero(t *testing.T) {
	r, store, _, logs := newReducer(t, 3)

	require.NoError(t, r.ReduceInventory(context.Background(), sale(2, 5)))

	assert.Equal(t, 0, store.Product(7).Stock)
	require.Len(t, store.Ledger(), 1)
	assert.Equal(t, 5, store.Ledger()[0].Quantity)
	m := store.Movements()[0]
	assert.Equal(t, 3, m.QuantityBefore)
	assert.Equal(t, 0, m.QuantityAfter)
	assert.Equal(t, 1, logs.FilterMessage("stock clamped at zero").Len())
}

func TestReduceInventory_ExactStockNotClamped(t *testing.T) {
	r, store, _, logs := newReducer(t, 5)

	require.NoError(t, r.ReduceInventory(context.Background(), sale(2, 5)))
	assert.Equal(t, 0, store.Product(7).Stock)
	assert.Zero(t, logs.FilterMessage("stock clamped at zero").Len())
}

func TestReduceInventory_IdempotentPerOrder(t *testing.T) {
	r, store, pusher, logs := newReducer(t, 10)
	ctx := context.Background()

	require.NoError(t, r.ReduceInventory(ctx, sale(3, 2)))
	require.NoError(t, r.ReduceInventory(ctx, sale(3, 2)))

	assert.Equal(t, 8, store.Product(7).Stock)
	assert.Len(t, store.Ledger(), 1)
	assert.Len(t, store.Movements(), 1)
	assert.Len(t, pusher.PushCalls(), 1)
	assert.Equal(t, 1, logs.FilterMessage("sale already recorded for order, skipping").Len())
}

func TestReduceInventory_MissingProduct(t *testing.T) {
	r, store, pusher, logs := newReducer(t, 10)

	s := sale(4, 1)
	s.ProductID = 99
	require.NoError(t, r.ReduceInventory(context.Background(), s))

	assert.Empty(t, store.Ledger())
	assert.Empty(t, pusher.PushCalls())
	entries := logs.FilterMessage("product missing for received order, inventory left untouched").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestReduceInventory_StoreErrorReturned(t *testing.T) {
	r, store, pusher, _ := newReducer(t, 10)
	dbErr := errors.New("too many connections")
	store.RecordErr = dbErr

	err := r.ReduceInventory(context.Background(), sale(5, 1))
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 10, store.Product(7).Stock)
	assert.Empty(t, store.Ledger())
	assert.Empty(t, store.Movements())
	assert.Empty(t, pusher.PushCalls())
}

func TestReduceInventory_DoesNotReadProductOutsideSale(t *testing.T) {
	r, store, _, _ := newReducer(t, 10)

	require.NoError(t, r.ReduceInventory(context.Background(), sale(6, 1)))
	assert.Empty(t, store.GetCalls)
	assert.Equal(t, 1, store.RecordCalls)
}

func TestReduceInventory_ConcurrentOrdersSameProduct(t *testing.T) {
	r, store, _, _ := newReducer(t, 40)

	// Both sales are in flight before either one is applied.
	var arrived sync.WaitGroup
	arrived.Add(2)
	store.BeforeRecord = func(*inventory.SaleLedgerEntry) {
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.ReduceInventory(context.Background(), sale(int64(10+i), 2))
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 36, store.Product(7).Stock)
	assert.Len(t, store.Ledger(), 2)

	movements := store.Movements()
	require.Len(t, movements, 2)
	assert.Equal(t, 40, movements[0].QuantityBefore)
	assert.Equal(t, 38, movements[0].QuantityAfter)
	assert.Equal(t, 38, movements[1].QuantityBefore)
	assert.Equal(t, 36, movements[1].QuantityAfter)
}

func TestReduceInventory_PushFailureSwallowed(t *testing.T) {
	r, store, pusher, logs := newReducer(t, 10)
	pusher.PushErr = errors.New("redis: connection refused")

	require.NoError(t, r.ReduceInventory(context.Background(), sale(7, 1)))
	assert.Equal(t, 9, store.Product(7).Stock)
	assert.Equal(t, 1, logs.FilterMessage("push inventory movement failed").Len())
}

func TestReduceInventory_NilPusher(t *testing.T) {
	store := mocks.NewMockInventoryStore()
	store.PutProduct(inventory.Product{ID: 7, SellerID: 20, Stock: 1})

	r := inventory.NewReducer(store, nil, nil)
	require.NoError(t, r.ReduceInventory(context.Background(), sale(8, 1)))
	assert.Equal(t, 0, store.Product(7).Stock)
}
