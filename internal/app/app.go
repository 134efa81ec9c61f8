// Package app assembles the retailcore services over a storage backend.
package app

import (
	"context"
	"fmt"

	"retailcore/internal/config"
	"retailcore/internal/core/tx"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/imports"
	"retailcore/internal/domain/inventory"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/sales"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/cache"
	"retailcore/internal/infrastructure/storage/memory"
	"retailcore/internal/infrastructure/storage/postgres"
	"retailcore/internal/infrastructure/storage/postgres/catalog_repo"
	"retailcore/internal/infrastructure/storage/postgres/import_repo"
	"retailcore/internal/infrastructure/storage/postgres/ledger_repo"
	"retailcore/internal/infrastructure/storage/postgres/sales_repo"
	"retailcore/pkg/logger"
)

// App holds the wired services.
type App struct {
	Catalog   catalog.Repository
	Ledger    *ledger.Service
	Stock     *stock.Service
	Sales     *sales.Service
	Imports   *imports.Service
	Inventory *inventory.Service

	// Postgres only.
	Pool        *postgres.Pool
	TxManager   *postgres.TxManager
	RequestKeys *postgres.RequestKeyStore
	Cache       *cache.CatalogCache

	listener *cache.Listener
}

type backend struct {
	txm        tx.Manager
	catalog    catalog.Repository
	reader     catalog.Reader
	movements  ledger.Repository
	stock      stock.Repository
	locker     stock.Locker
	parameters stock.ParameterRepository
	sales      sales.Repository
	batchLogs  imports.BatchLogRepository
}

func assemble(b backend) *App {
	ledgerService := ledger.NewService(b.movements, b.reader)
	stockService := stock.NewService(b.stock, b.parameters, b.reader)
	salesService := sales.NewService(b.sales, b.reader, stockService, ledgerService, b.txm)
	inventoryService := inventory.NewService(ledgerService, stockService, b.reader, b.txm)
	if b.locker != nil {
		salesService.WithLocker(b.locker)
		inventoryService.WithLocker(b.locker)
	}

	return &App{
		Catalog:   b.catalog,
		Ledger:    ledgerService,
		Stock:     stockService,
		Sales:     salesService,
		Imports:   imports.NewService(salesService, b.reader, b.batchLogs),
		Inventory: inventoryService,
	}
}

// NewMemory wires the services over an in-memory store.
func NewMemory(store *memory.Store) *App {
	return assemble(backend{
		txm:        store,
		catalog:    store.Catalog(),
		reader:     store.Catalog(),
		movements:  store.Movements(),
		stock:      store.Stock(),
		parameters: store.Parameters(),
		sales:      store.Sales(),
		batchLogs:  store.BatchLogs(),
	})
}

// NewPostgres opens a pool on cfg.DatabaseURL and wires the services over it.
// Catalog reads go through a cache invalidated by the catalog_changed channel
// once StartListener is called.
func NewPostgres(ctx context.Context, cfg config.Config) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	if poolCfg.MinConns > poolCfg.MaxConns {
		poolCfg.MinConns = poolCfg.MaxConns
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	codec, err := postgres.NewPayloadCodec(postgres.DefaultCompressThreshold)
	if err != nil {
		pool.Close()
		return nil, err
	}

	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.DBStatementTimeout)
	catalogRepo := catalog_repo.NewCatalogRepo(txm)
	catalogCache := cache.NewCatalogCache(catalogRepo, cfg.CatalogCacheTTL)
	stockRepo := ledger_repo.NewStockRepo(txm)

	b := backend{
		txm:        txm,
		catalog:    catalogRepo,
		reader:     catalogCache,
		movements:  ledger_repo.NewMovementRepo(txm),
		stock:      stockRepo,
		parameters: ledger_repo.NewParameterRepo(txm),
		sales:      sales_repo.NewSaleRepo(txm),
		batchLogs:  import_repo.NewBatchLogRepo(txm, codec),
	}
	if cfg.StockAdvisoryLocks {
		b.locker = stockRepo
	}

	a := assemble(b)
	a.Pool = pool
	a.TxManager = txm
	a.RequestKeys = postgres.NewRequestKeyStore(txm, cfg.IdempotencyTTL)
	a.Cache = catalogCache
	a.listener = cache.NewListener(pool.Unwrap(), catalogCache)

	logger.Info(ctx, "postgres backend ready",
		"max_conns", poolCfg.MaxConns,
		"advisory_locks", cfg.StockAdvisoryLocks,
	)
	return a, nil
}

// StartListener begins catalog cache invalidation. No-op for the memory backend.
func (a *App) StartListener(ctx context.Context) {
	if a.listener != nil {
		a.listener.Start(ctx)
	}
}

// Close stops the listener and releases the pool.
func (a *App) Close() {
	if a.listener != nil {
		a.listener.Stop()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// Open picks the backend from cfg: Postgres when DATABASE_URL is set, a fresh
// in-memory store otherwise.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.UsesPostgres() {
		return NewPostgres(ctx, cfg)
	}
	logger.Warn(ctx, "DATABASE_URL not set, using the in-memory store")
	return NewMemory(memory.NewSeeded()), nil
}
