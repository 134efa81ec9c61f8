package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/inventory"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/sales"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/memory"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	ledger    *ledger.Service
	stock     *stock.Service
	sales     *sales.Service
	inventory *inventory.Service

	sku     entity.SKU
	other   entity.SKU
	inStore entity.Channel
	online  entity.Channel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewSeeded()
	cat := store.Catalog()

	f := &fixture{store: store}
	f.sku = entity.SKU{CatalogBase: entity.NewCatalogBase("X", "Shirt X"), ListPrice: types.MustMoney("19.99")}
	f.other = entity.SKU{CatalogBase: entity.NewCatalogBase("Y", "Shirt Y"), ListPrice: types.MustMoney("5.00")}
	f.inStore = entity.Channel{CatalogBase: entity.NewCatalogBase(entity.ChannelInPerson, "Store"), RequiresReference: true}
	f.online = entity.Channel{CatalogBase: entity.NewCatalogBase("ONLINE", "Web shop")}
	require.NoError(t, cat.SaveSKU(ctx, &f.sku))
	require.NoError(t, cat.SaveSKU(ctx, &f.other))
	require.NoError(t, cat.SaveChannel(ctx, &f.inStore))
	require.NoError(t, cat.SaveChannel(ctx, &f.online))

	f.ledger = ledger.NewService(store.Movements(), cat)
	f.stock = stock.NewService(store.Stock(), store.Parameters(), cat)
	f.sales = sales.NewService(store.Sales(), cat, f.stock, f.ledger, store)
	f.inventory = inventory.NewService(f.ledger, f.stock, cat, store)
	return f
}

func (f *fixture) receive(t *testing.T, sku entity.SKU, qty int64, at time.Time) {
	t.Helper()
	res, err := f.inventory.RegisterInitialStock(context.Background(), inventory.Input{
		SKUID:     &sku.ID,
		Timestamp: &at,
		Quantity:  qty,
		Reference: "INIT-" + at.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.True(t, res.Applied)
}

func (f *fixture) stockOf(t *testing.T, sku entity.SKU) int64 {
	t.Helper()
	levels, err := f.stock.StockAsOf(context.Background(), []id.ID{sku.ID}, nil)
	require.NoError(t, err)
	return stock.Available(levels, sku.ID)
}

func (f *fixture) movements(t *testing.T) []entity.Movement {
	t.Helper()
	res, err := f.ledger.List(context.Background(), ledger.MovementFilter{Page: domain.Page{Limit: domain.MaxLimit}})
	require.NoError(t, err)
	return res.Items
}

func (f *fixture) saleCount(t *testing.T) int64 {
	t.Helper()
	res, err := f.sales.List(context.Background(), sales.Filter{})
	require.NoError(t, err)
	return res.TotalCount
}

func onlineSale(f *fixture, at time.Time, qty int64) sales.RegisterInput {
	return sales.RegisterInput{
		Timestamp: &at,
		ChannelID: &f.online.ID,
		Lines: []sales.LineInput{
			{SKUID: &f.sku.ID, Quantity: qty, UnitPrice: types.MustMoney("19.99")},
		},
	}
}

func TestRegister_WorkedExample(t *testing.T) {
	f := newFixture(t)
	ctx := appctx.WithUserID(context.Background(), "cashier-1")

	_, err := f.sales.Register(ctx, onlineSale(f, t0.Add(time.Hour), 3))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Empty(t, f.movements(t))
	assert.Zero(t, f.saleCount(t))

	f.receive(t, f.sku, 10, t0)

	sale, err := f.sales.Register(ctx, onlineSale(f, t0.Add(time.Hour), 3))
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.stockOf(t, f.sku))
	assert.Equal(t, "59.97", sale.Total.StringFixed(2))
	assert.Equal(t, "cashier-1", sale.CreatedBy)

	require.NoError(t, f.sales.Void(ctx, sale.ID, ""))
	assert.Equal(t, int64(10), f.stockOf(t, f.sku))

	voided, err := f.sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StateVoid, voided.State)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, sales.DefaultVoidReason, *voided.VoidReason)
	require.NotNil(t, voided.VoidedBy)
	assert.Equal(t, "cashier-1", *voided.VoidedBy)
}

func TestRegister_WritesOneMovementPerLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 10, t0)
	f.receive(t, f.other, 10, t0)

	at := t0.Add(time.Hour)
	sale, err := f.sales.Register(ctx, sales.RegisterInput{
		Timestamp: &at,
		ChannelID: &f.online.ID,
		Reference: "WEB-1",
		Lines: []sales.LineInput{
			{SKUID: &f.sku.ID, Quantity: 2, UnitPrice: types.MustMoney("18.00")},
			{SKUCode: "y", Quantity: 1, UnitPrice: types.MustMoney("4.50")},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Lines, 2)
	assert.Equal(t, "40.50", sale.Total.StringFixed(2))
	assert.True(t, sale.Lines[0].ListPrice.Equal(f.sku.ListPrice), "list price defaults to the SKU's")

	res, err := f.ledger.List(ctx, ledger.MovementFilter{SaleID: &sale.ID, Page: domain.Page{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	for _, m := range res.Items {
		assert.Equal(t, entity.MovementSale, m.TypeCode)
		assert.Equal(t, entity.SignOut, m.Sign)
		assert.Equal(t, "WEB-1", m.Reference)
		assert.Equal(t, sales.DefaultObservation, m.Observation)
		assert.Equal(t, at, m.Timestamp)
	}
}

func TestRegister_PrecheckIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 10, t0)
	// other has no stock at all

	at := t0.Add(time.Hour)
	_, err := f.sales.Register(ctx, sales.RegisterInput{
		Timestamp: &at,
		ChannelID: &f.online.ID,
		Lines: []sales.LineInput{
			{SKUID: &f.sku.ID, Quantity: 1, UnitPrice: types.MustMoney("1")},
			{SKUID: &f.other.ID, Quantity: 1, UnitPrice: types.MustMoney("1")},
		},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "Y", appErr.Details["sku"])
	assert.Equal(t, int64(1), appErr.Details["requested"])
	assert.Equal(t, int64(0), appErr.Details["available"])

	assert.Len(t, f.movements(t), 1, "only the initial stock movement")
	assert.Zero(t, f.saleCount(t))
}

func TestRegister_PrecheckSumsLinesOfSameSKU(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 5, t0)

	at := t0.Add(time.Hour)
	_, err := f.sales.Register(ctx, sales.RegisterInput{
		Timestamp: &at,
		ChannelID: &f.online.ID,
		Lines: []sales.LineInput{
			{SKUID: &f.sku.ID, Quantity: 3, UnitPrice: types.MustMoney("1")},
			{SKUID: &f.sku.ID, Quantity: 3, UnitPrice: types.MustMoney("1")},
		},
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, int64(6), appErr.Details["requested"])
	assert.Equal(t, int64(5), f.stockOf(t, f.sku))
}

func TestRegister_PrecheckUsesSaleTimestamp(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.sku, 10, t0)

	_, err := f.sales.Register(context.Background(), onlineSale(f, t0.Add(-time.Minute), 1))
	assert.True(t, apperror.IsInsufficientStock(err), "stock received after the sale time does not count")
}

func TestRegister_DuplicateHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 10, t0)

	at := t0.Add(time.Hour)
	in := sales.RegisterInput{
		Timestamp: &at,
		ChannelID: &f.inStore.ID,
		Reference: "T-0001",
		Lines:     []sales.LineInput{{SKUID: &f.sku.ID, Quantity: 1, UnitPrice: types.MustMoney("19.99")}},
	}
	_, err := f.sales.Register(ctx, in)
	require.NoError(t, err)

	_, err = f.sales.Register(ctx, in)
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicateSale(err))
	assert.Equal(t, int64(1), f.saleCount(t))
	assert.Equal(t, int64(9), f.stockOf(t, f.sku))
}

func TestRegister_RetryWithSameSaleID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 10, t0)

	saleID := id.New()
	in := onlineSale(f, t0.Add(time.Hour), 2)
	in.SaleID = &saleID

	first, err := f.sales.Register(ctx, in)
	require.NoError(t, err)
	second, err := f.sales.Register(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Lines[0].ID, second.Lines[0].ID)
	assert.Equal(t, int64(8), f.stockOf(t, f.sku))
	assert.Len(t, f.movements(t), 2)
}

func TestRegister_ReferenceRequired(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.sku, 10, t0)

	at := t0.Add(time.Hour)
	_, err := f.sales.Register(context.Background(), sales.RegisterInput{
		Timestamp:   &at,
		ChannelCode: "fisico",
		Lines:       []sales.LineInput{{SKUID: &f.sku.ID, Quantity: 1, UnitPrice: types.MustMoney("1")}},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "reference", appErr.Details["field"])
}

func TestRegister_LineValidation(t *testing.T) {
	f := newFixture(t)
	f.receive(t, f.sku, 10, t0)
	at := t0.Add(time.Hour)

	tests := []struct {
		name  string
		lines []sales.LineInput
		field string
	}{
		{"no lines", nil, "lines"},
		{"zero quantity", []sales.LineInput{{SKUID: &f.sku.ID, Quantity: 0, UnitPrice: types.MustMoney("1")}}, "quantity"},
		{"negative price", []sales.LineInput{{SKUID: &f.sku.ID, Quantity: 1, UnitPrice: types.MustMoney("-1")}}, "unitPrice"},
		{"no sku", []sales.LineInput{{Quantity: 1, UnitPrice: types.MustMoney("1")}}, "sku"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sales.Register(context.Background(), sales.RegisterInput{
				Timestamp: &at,
				ChannelID: &f.online.ID,
				Lines:     tt.lines,
			})
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	_, err := f.sales.Register(context.Background(), sales.RegisterInput{
		Timestamp: &at,
		ChannelID: &f.online.ID,
		Lines:     []sales.LineInput{{SKUCode: "missing", Quantity: 1, UnitPrice: types.MustMoney("1")}},
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestRegister_SeasonPolicies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 10, t0)

	spring := entity.Season{
		CatalogBase: entity.NewCatalogBase("SPRING", "Spring"),
		StartDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.Catalog().SaveSeason(ctx, &spring))

	auto, err := f.sales.Register(ctx, onlineSale(f, t0.Add(time.Hour), 1))
	require.NoError(t, err)
	require.NotNil(t, auto.SeasonID)
	assert.Equal(t, spring.ID, *auto.SeasonID)

	in := onlineSale(f, t0.Add(2*time.Hour), 1)
	in.Season = catalog.NoSeason()
	none, err := f.sales.Register(ctx, in)
	require.NoError(t, err)
	assert.Nil(t, none.SeasonID)

	in = onlineSale(f, t0.Add(3*time.Hour), 1)
	in.Season = catalog.FixedSeason(id.New())
	_, err = f.sales.Register(ctx, in)
	assert.True(t, apperror.IsNotFound(err))
}

func TestVoid_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 10, t0)

	at := t0.Add(time.Hour)
	sale, err := f.sales.Register(ctx, sales.RegisterInput{
		Timestamp: &at,
		ChannelID: &f.inStore.ID,
		Reference: "T-7",
		Lines:     []sales.LineInput{{SKUID: &f.sku.ID, Quantity: 4, UnitPrice: types.MustMoney("19.99")}},
	})
	require.NoError(t, err)

	require.NoError(t, f.sales.Void(ctx, sale.ID, "customer returned"))
	require.NoError(t, f.sales.Void(ctx, sale.ID, "again"))

	res, err := f.ledger.List(ctx, ledger.MovementFilter{
		SaleID:   &sale.ID,
		TypeCode: entity.MovementVoid,
		Page:     domain.Page{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "ANUL-T-7", res.Items[0].Reference)
	assert.Equal(t, "customer returned", res.Items[0].Observation)
	assert.Equal(t, entity.SignIn, res.Items[0].Sign)
	assert.Equal(t, at, res.Items[0].Timestamp)
	assert.Equal(t, int64(10), f.stockOf(t, f.sku))

	got, err := f.sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "customer returned", *got.VoidReason)
}

func TestVoid_UnknownSale(t *testing.T) {
	f := newFixture(t)
	err := f.sales.Void(context.Background(), id.New(), "")
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_FiltersByState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.receive(t, f.sku, 10, t0)

	a, err := f.sales.Register(ctx, onlineSale(f, t0.Add(time.Hour), 1))
	require.NoError(t, err)
	_, err = f.sales.Register(ctx, onlineSale(f, t0.Add(2*time.Hour), 1))
	require.NoError(t, err)
	require.NoError(t, f.sales.Void(ctx, a.ID, ""))

	res, err := f.sales.List(ctx, sales.Filter{State: sales.StateActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)

	res, err = f.sales.List(ctx, sales.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.True(t, res.Items[0].Timestamp.After(res.Items[1].Timestamp), "newest first")
}
