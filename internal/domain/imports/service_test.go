package imports_test

import (
	"context"
	"errors"
	"fmt"
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
	"retailcore/internal/domain/imports"
	"retailcore/internal/domain/inventory"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/sales"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/memory"
)

var day = time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

type env struct {
	imports *imports.Service
	sales   *sales.Service
	ledger  *ledger.Service
	stock   *stock.Service
	store   *memory.Store
	skuA    entity.SKU
	skuB    entity.SKU
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewSeeded()
	cat := store.Catalog()

	e := &env{
		store: store,
		skuA: entity.SKU{CatalogBase: entity.NewCatalogBase("A", "Item A"), ListPrice: types.MustMoney("10.00")},
		skuB: entity.SKU{CatalogBase: entity.NewCatalogBase("B", "Item B"), ListPrice: types.MustMoney("20.00")},
	}
	require.NoError(t, cat.SaveSKU(ctx, &e.skuA))
	require.NoError(t, cat.SaveSKU(ctx, &e.skuB))
	inStore := entity.Channel{CatalogBase: entity.NewCatalogBase("FISICO", "Store"), RequiresReference: true}
	online := entity.Channel{CatalogBase: entity.NewCatalogBase("ONLINE", "Web")}
	require.NoError(t, cat.SaveChannel(ctx, &inStore))
	require.NoError(t, cat.SaveChannel(ctx, &online))

	e.ledger = ledger.NewService(store.Movements(), cat)
	e.stock = stock.NewService(store.Stock(), store.Parameters(), cat)
	e.sales = sales.NewService(store.Sales(), cat, e.stock, e.ledger, store)
	e.imports = imports.NewService(e.sales, cat, store.BatchLogs())

	inv := inventory.NewService(e.ledger, e.stock, cat, store)
	for _, sku := range []entity.SKU{e.skuA, e.skuB} {
		_, err := inv.RegisterInitialStock(ctx, inventory.Input{SKUID: &sku.ID, Timestamp: &day, Quantity: 20})
		require.NoError(t, err)
	}
	return e
}

func row(hour int, channel, ref, sku string, qty int64, price string) imports.Row {
	ts := day.Add(time.Duration(hour) * time.Hour)
	p := types.MustMoney(price)
	return imports.Row{
		Timestamp:   &ts,
		ChannelCode: channel,
		Reference:   ref,
		SKUCode:     sku,
		Quantity:    &qty,
		UnitPrice:   &p,
	}
}

func (e *env) level(t *testing.T, sku entity.SKU) int64 {
	t.Helper()
	levels, err := e.stock.StockAsOf(context.Background(), []id.ID{sku.ID}, nil)
	require.NoError(t, err)
	return stock.Available(levels, sku.ID)
}

func TestImport_GroupsRowsIntoSales(t *testing.T) {
	e := newEnv(t)
	ctx := appctx.WithUserID(context.Background(), "importer")

	rows := []imports.Row{
		row(10, "FISICO", "T-1", "A", 1, "10.00"),
		row(11, "ONLINE", "W-1", "B", 2, "19.00"),
		row(10, "fisico", "T-1", "B", 1, "20.00"),
	}
	res, err := e.imports.Import(ctx, rows, imports.Options{FileName: "ventas.xlsx", Note: "april"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.OKCount)
	assert.Zero(t, res.ErrorCount)
	assert.Equal(t, 2, res.SalesCreated)
	require.NotNil(t, res.BatchID)

	list, err := e.sales.List(ctx, sales.Filter{Reference: "T-1"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	sale, err := e.sales.Get(ctx, list.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, sale.Lines, 2, "rows sharing (timestamp, channel, reference) form one sale")
	assert.Equal(t, "30.00", sale.Total.StringFixed(2))

	mv, err := e.ledger.List(ctx, ledger.MovementFilter{SaleID: &sale.ID, Page: domain.Page{Limit: 10}})
	require.NoError(t, err)
	require.NotEmpty(t, mv.Items)
	assert.Equal(t, "Importacion Excel: ventas.xlsx | april", mv.Items[0].Observation)

	batch, err := e.imports.GetBatch(ctx, *res.BatchID)
	require.NoError(t, err)
	assert.Equal(t, imports.KindSales, batch.Kind)
	assert.Equal(t, "importer", batch.UserID)
	assert.Equal(t, 3, batch.OKCount)
	assert.Equal(t, 2, batch.SalesCreated)
}

func TestImport_BadRowsDoNotBlockTheBatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	missingSKU := row(9, "ONLINE", "", "", 1, "1")
	noQty := row(9, "ONLINE", "", "A", 1, "1")
	noQty.Quantity = nil
	rows := []imports.Row{
		row(9, "ONLINE", "W-1", "A", 2, "10"),
		missingSKU,
		row(9, "FISICO", "", "A", 1, "10"),
		row(9, "NOWHERE", "X", "A", 1, "10"),
		noQty,
		row(9, "ONLINE", "W-2", "ZZZ", 1, "10"),
	}
	res, err := e.imports.Import(ctx, rows, imports.Options{FileName: "mixed.xlsx"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.OKCount)
	assert.Equal(t, 5, res.ErrorCount)
	assert.Equal(t, 1, res.SalesCreated)
	assert.Equal(t, int64(18), e.level(t, e.skuA))
	require.Len(t, res.SampleErrors, 5)
	assert.Equal(t, "row 2: sku is required", res.SampleErrors[0])

	errs, err := e.imports.ListBatchErrors(ctx, *res.BatchID, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, int64(5), errs.TotalCount)
	fields := make([]string, len(errs.Items))
	for i, be := range errs.Items {
		fields[i] = be.Field
	}
	assert.Equal(t, []string{"sku", "reference", "channel", "quantity", "sku"}, fields)
	assert.Equal(t, 3, errs.Items[1].RowNumber)
}

func TestImport_RejectedGroupBecomesRowErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rows := []imports.Row{
		row(9, "ONLINE", "W-1", "A", 15, "10"),
		row(9, "ONLINE", "W-1", "B", 1, "10"),
		row(10, "ONLINE", "W-2", "A", 10, "10"), // 20 - 15 < 10 once W-1 commits
		row(11, "ONLINE", "W-3", "B", 1, "10"),
	}
	res, err := e.imports.Import(ctx, rows, imports.Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.OKCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, 2, res.SalesCreated)
	assert.Contains(t, res.SampleErrors[0], "row 3:")
	assert.Equal(t, int64(5), e.level(t, e.skuA))
	assert.Equal(t, int64(18), e.level(t, e.skuB))
}

func TestImport_DuplicatesAreSkippedAndCounted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rows := []imports.Row{
		row(9, "FISICO", "T-9", "A", 1, "10"),
		row(9, "FISICO", "T-9", "B", 1, "20"),
	}

	first, err := e.imports.Import(ctx, rows, imports.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, first.SalesCreated)

	second, err := e.imports.Import(ctx, rows, imports.Options{})
	require.NoError(t, err)
	assert.Zero(t, second.SalesCreated)
	assert.Zero(t, second.ErrorCount)
	assert.Equal(t, 2, second.DuplicateCount)
	assert.Equal(t, int64(19), e.level(t, e.skuA))

	batches, err := e.imports.ListBatches(ctx, domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), batches.TotalCount)
}

func TestImport_DryRunWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rows := []imports.Row{
		row(9, "ONLINE", "W-1", "A", 2, "10"),
		row(9, "ONLINE", "W-1", "", 2, "10"),
	}

	res, err := e.imports.Import(ctx, rows, imports.Options{DryRun: true})
	require.NoError(t, err)
	assert.Nil(t, res.BatchID)
	assert.Equal(t, 1, res.OKCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Zero(t, res.SalesCreated)
	assert.Equal(t, int64(20), e.level(t, e.skuA))

	batches, err := e.imports.ListBatches(ctx, domain.Page{})
	require.NoError(t, err)
	assert.Zero(t, batches.TotalCount)
}

func TestImport_SampleErrorsAreCapped(t *testing.T) {
	e := newEnv(t)
	rows := make([]imports.Row, 25)
	for i := range rows {
		rows[i] = row(9, "ONLINE", fmt.Sprintf("W-%d", i), "NOPE", 1, "1")
	}
	res, err := e.imports.Import(context.Background(), rows, imports.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 25, res.ErrorCount)
	assert.Len(t, res.SampleErrors, imports.MaxSampleErrors)
}

func TestImport_FixedSeasonValidatedUpFront(t *testing.T) {
	e := newEnv(t)
	_, err := e.imports.Import(context.Background(),
		[]imports.Row{row(9, "ONLINE", "W-1", "A", 1, "1")},
		imports.Options{Season: catalog.FixedSeason(id.New())},
	)
	assert.True(t, apperror.IsNotFound(err))
}

func TestImport_AnalystMayOnlyValidate(t *testing.T) {
	e := newEnv(t)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "a1", Roles: []string{imports.RoleAnalyst}})
	rows := []imports.Row{row(9, "ONLINE", "W-1", "A", 1, "1")}

	_, err := e.imports.Import(ctx, rows, imports.Options{})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	res, err := e.imports.Import(ctx, rows, imports.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.OKCount)
}

type flakyRegistrar struct {
	next    imports.SaleRegistrar
	failRef string
}

func (f flakyRegistrar) Register(ctx context.Context, in sales.RegisterInput) (*sales.Sale, error) {
	if in.Reference == f.failRef {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.Register(ctx, in)
}

type brokenFinish struct {
	imports.BatchLogRepository
}

func (brokenFinish) Finish(context.Context, *imports.BatchLog, []imports.BatchError) error {
	return errors.New("disk full")
}

func TestImport_InfrastructureFailureKeepsBreakdown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := imports.NewService(flakyRegistrar{next: e.sales, failRef: "W-2"}, e.store.Catalog(), e.store.BatchLogs())

	rows := []imports.Row{
		row(9, "ONLINE", "W-1", "A", 1, "10.00"),
		row(10, "ONLINE", "W-2", "A", 1, "10.00"),
		row(10, "ONLINE", "W-2", "B", 1, "20.00"),
		row(11, "ONLINE", "W-3", "B", 1, "20.00"),
		row(12, "", "W-4", "B", 1, "20.00"),
	}
	res, err := svc.Import(ctx, rows, imports.Options{FileName: "ventas.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import group at row 2")
	require.NotNil(t, res)

	assert.Equal(t, 1, res.OKCount)
	assert.Equal(t, 1, res.SalesCreated)
	assert.Equal(t, 4, res.ErrorCount, "the bad row, the failed group and the groups after it")
	require.NotNil(t, res.BatchID)

	batch, err := svc.GetBatch(ctx, *res.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.OKCount)
	assert.Equal(t, 4, batch.ErrorCount)

	errs, err := svc.ListBatchErrors(ctx, *res.BatchID, domain.Page{Limit: 10})
	require.NoError(t, err)
	rowsWithErrors := make([]int, 0, len(errs.Items))
	for _, be := range errs.Items {
		rowsWithErrors = append(rowsWithErrors, be.RowNumber)
	}
	assert.ElementsMatch(t, []int{2, 3, 4, 5}, rowsWithErrors)
}

func TestImport_FailureToCloseBatchLogIsReported(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := imports.NewService(flakyRegistrar{next: e.sales, failRef: "W-1"}, e.store.Catalog(),
		brokenFinish{e.store.BatchLogs()})

	res, err := svc.Import(ctx, []imports.Row{row(9, "ONLINE", "W-1", "A", 1, "10.00")}, imports.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Contains(t, err.Error(), "disk full")
	require.NotNil(t, res)
	assert.Equal(t, 1, res.ErrorCount)
}
