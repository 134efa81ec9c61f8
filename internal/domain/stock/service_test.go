package stock_test

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
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/memory"
)

var cutoff = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type harness struct {
	stock  *stock.Service
	ledger *ledger.Service
	skus   map[string]entity.SKU
}

func newHarness(t *testing.T, codes ...string) *harness {
	t.Helper()
	store := memory.NewSeeded()
	cat := store.Catalog()
	h := &harness{
		stock:  stock.NewService(store.Stock(), store.Parameters(), cat),
		ledger: ledger.NewService(store.Movements(), cat),
		skus:   map[string]entity.SKU{},
	}
	for _, code := range codes {
		sku := entity.SKU{CatalogBase: entity.NewCatalogBase(code, code), ListPrice: types.MustMoney("1")}
		require.NoError(t, cat.SaveSKU(context.Background(), &sku))
		h.skus[code] = sku
	}
	return h
}

func (h *harness) move(t *testing.T, code, typeCode string, sign entity.Sign, qty int64, at time.Time) {
	t.Helper()
	sku := h.skus[code]
	_, err := h.ledger.Append(context.Background(), entity.Movement{
		Timestamp:      at,
		SKUID:          sku.ID,
		TypeCode:       typeCode,
		Quantity:       qty,
		Sign:           sign,
		IdempotencyKey: idempotency.Key(sku.ID.String(), at.String(), typeCode, id.New().String()),
	})
	require.NoError(t, err)
}

func TestStockAsOf(t *testing.T) {
	h := newHarness(t, "A", "B", "C")
	ctx := context.Background()

	h.move(t, "A", entity.MovementInitialStock, entity.SignIn, 10, cutoff.Add(-48*time.Hour))
	h.move(t, "A", entity.MovementSale, entity.SignOut, 3, cutoff.Add(-time.Hour))
	h.move(t, "A", entity.MovementSale, entity.SignOut, 2, cutoff)
	h.move(t, "A", entity.MovementReceipt, entity.SignIn, 50, cutoff.Add(time.Second))
	h.move(t, "B", entity.MovementAdjustment, entity.SignOut, 1, cutoff.Add(-time.Hour))

	a, b, c := h.skus["A"].ID, h.skus["B"].ID, h.skus["C"].ID
	levels, err := h.stock.StockAsOf(ctx, []id.ID{a, b, c, a}, &cutoff)
	require.NoError(t, err)

	assert.Equal(t, int64(5), levels[a], "cutoff is inclusive")
	assert.Equal(t, int64(-1), levels[b])
	_, present := levels[c]
	assert.False(t, present, "SKUs without movements are absent")
	assert.Equal(t, int64(0), stock.Available(levels, c))

	empty, err := h.stock.StockAsOf(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDemandInWindow(t *testing.T) {
	h := newHarness(t, "A")
	ctx := context.Background()
	from := cutoff.Add(-24 * time.Hour)

	h.move(t, "A", entity.MovementSale, entity.SignOut, 4, from)
	h.move(t, "A", entity.MovementSale, entity.SignOut, 6, cutoff.Add(-time.Second))
	h.move(t, "A", entity.MovementVoid, entity.SignIn, 6, cutoff.Add(-time.Second))
	h.move(t, "A", entity.MovementSale, entity.SignOut, 100, cutoff)

	a := h.skus["A"].ID
	sold, err := h.stock.DemandInWindow(ctx, []id.ID{a}, from, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sold[a], "window is half-open and counts outflows only")

	_, err = h.stock.DemandInWindow(ctx, []id.ID{a}, cutoff, from)
	assert.True(t, apperror.IsValidation(err))
}

func TestAlerts(t *testing.T) {
	h := newHarness(t, "RED", "YELLOW", "GREEN")
	ctx := context.Background()

	start := cutoff.AddDate(0, 0, -40)
	h.move(t, "RED", entity.MovementInitialStock, entity.SignIn, 3, start)
	h.move(t, "YELLOW", entity.MovementInitialStock, entity.SignIn, 100, start)
	h.move(t, "YELLOW", entity.MovementSale, entity.SignOut, 84, cutoff.AddDate(0, 0, -10))
	h.move(t, "GREEN", entity.MovementInitialStock, entity.SignIn, 500, start)
	// outside the 28-day window
	h.move(t, "GREEN", entity.MovementSale, entity.SignOut, 280, cutoff.AddDate(0, 0, -35))

	for code, p := range map[string]stock.Parameter{
		"RED":    {MinStock: 5, LeadTimeDays: 3, SafetyStock: 2},
		"YELLOW": {MinStock: 5, LeadTimeDays: 3, SafetyStock: 10},
		"GREEN":  {MinStock: 5, LeadTimeDays: 3, SafetyStock: 10},
	} {
		p.SKUID = h.skus[code].ID
		_, err := h.stock.SaveParameter(ctx, p)
		require.NoError(t, err)
	}

	alerts, err := h.stock.Alerts(ctx, &cutoff)
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	assert.Equal(t, "RED", alerts[0].SKUCode)
	assert.Equal(t, stock.LevelRed, alerts[0].Level)

	yellow := alerts[1]
	assert.Equal(t, stock.LevelYellow, yellow.Level)
	assert.Equal(t, int64(16), yellow.Stock)
	assert.Equal(t, int64(3), yellow.DailyDemand)
	assert.Equal(t, int64(19), yellow.ReorderPoint)
	assert.Equal(t, int64(5), yellow.CoverageDays)

	green := alerts[2]
	assert.Equal(t, stock.LevelGreen, green.Level)
	assert.Equal(t, int64(1), green.DailyDemand)
}

func TestParameters(t *testing.T) {
	h := newHarness(t, "A")
	ctx := context.Background()
	a := h.skus["A"].ID

	first, err := h.stock.SaveParameter(ctx, stock.Parameter{SKUID: a, MinStock: 1})
	require.NoError(t, err)
	second, err := h.stock.SaveParameter(ctx, stock.Parameter{SKUID: a, MinStock: 7})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one parameter per SKU")

	got, err := h.stock.GetParameter(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.MinStock)

	_, err = h.stock.SaveParameter(ctx, stock.Parameter{SKUID: a, LeadTimeDays: -1})
	assert.True(t, apperror.IsValidation(err))
	_, err = h.stock.SaveParameter(ctx, stock.Parameter{SKUID: id.New()})
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, h.stock.DeleteParameter(ctx, a))
	_, err = h.stock.GetParameter(ctx, a)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, "B", "A")
	ctx := context.Background()

	h.move(t, "B", entity.MovementInitialStock, entity.SignIn, 4, cutoff.Add(-time.Hour))
	h.move(t, "B", entity.MovementSale, entity.SignOut, 1, cutoff.Add(time.Hour))

	items, err := h.stock.Snapshot(ctx, &cutoff)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, stock.SKUStock{SKUID: h.skus["A"].ID, SKUCode: "A", Quantity: 0}, items[0])
	assert.Equal(t, stock.SKUStock{SKUID: h.skus["B"].ID, SKUCode: "B", Quantity: 4}, items[1])
}
