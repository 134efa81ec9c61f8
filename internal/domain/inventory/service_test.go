package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/idempotency"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/inventory"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/memory"
)

func setup(t *testing.T) (*inventory.Service, *stock.Service, entity.SKU) {
	t.Helper()
	store := memory.NewSeeded()
	cat := store.Catalog()
	sku := entity.SKU{CatalogBase: entity.NewCatalogBase("SKU-1", "Socks"), ListPrice: types.MustMoney("3.50")}
	require.NoError(t, cat.SaveSKU(context.Background(), &sku))

	stockSvc := stock.NewService(store.Stock(), store.Parameters(), cat)
	ledgerSvc := ledger.NewService(store.Movements(), cat)
	return inventory.NewService(ledgerSvc, stockSvc, cat, store), stockSvc, sku
}

func level(t *testing.T, s *stock.Service, skuID id.ID) int64 {
	t.Helper()
	levels, err := s.StockAsOf(context.Background(), []id.ID{skuID}, nil)
	require.NoError(t, err)
	return stock.Available(levels, skuID)
}

func TestRegisterInitialStock_IsIdempotent(t *testing.T) {
	svc, stockSvc, sku := setup(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 2, 9, 30, 15, 500, time.UTC)

	in := inventory.Input{SKUCode: "sku-1", Timestamp: &at, Quantity: 10, Reference: "OPEN-2025"}
	first, err := svc.RegisterInitialStock(ctx, in)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, idempotency.AdjustmentKey(sku.ID, at, entity.MovementInitialStock, "OPEN-2025"), first.Key)

	second, err := svc.RegisterInitialStock(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, first.Key, second.Key)

	assert.Equal(t, int64(10), level(t, stockSvc, sku.ID))
}

func TestRegisterReceipt(t *testing.T) {
	svc, stockSvc, sku := setup(t)
	ctx := context.Background()

	_, err := svc.RegisterReceipt(ctx, inventory.Input{SKUID: &sku.ID, Quantity: 4, Reference: "PO-1"})
	require.NoError(t, err)
	_, err = svc.RegisterReceipt(ctx, inventory.Input{SKUID: &sku.ID, Quantity: 6, Reference: "PO-2"})
	require.NoError(t, err)

	assert.Equal(t, int64(10), level(t, stockSvc, sku.ID))
}

func TestRegisterAdjustment(t *testing.T) {
	svc, stockSvc, sku := setup(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	later := at.Add(time.Hour)

	_, err := svc.RegisterInitialStock(ctx, inventory.Input{SKUID: &sku.ID, Timestamp: &at, Quantity: 5})
	require.NoError(t, err)

	_, err = svc.RegisterAdjustment(ctx, inventory.AdjustmentInput{
		Input: inventory.Input{SKUID: &sku.ID, Timestamp: &later, Quantity: 6, Reference: "COUNT-1"},
		Sign:  entity.SignOut,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(5), level(t, stockSvc, sku.ID))

	res, err := svc.RegisterAdjustment(ctx, inventory.AdjustmentInput{
		Input: inventory.Input{SKUID: &sku.ID, Timestamp: &later, Quantity: 2, Reference: "COUNT-1"},
		Sign:  entity.SignOut,
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, int64(3), level(t, stockSvc, sku.ID))

	_, err = svc.RegisterAdjustment(ctx, inventory.AdjustmentInput{
		Input: inventory.Input{SKUID: &sku.ID, Quantity: 2},
		Sign:  entity.Sign(0),
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestRecord_Validation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.RegisterReceipt(ctx, inventory.Input{SKUCode: "SKU-1", Quantity: 0})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.RegisterReceipt(ctx, inventory.Input{Quantity: 1})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.RegisterReceipt(ctx, inventory.Input{SKUCode: "UNKNOWN", Quantity: 1})
	assert.True(t, apperror.IsNotFound(err))
}
