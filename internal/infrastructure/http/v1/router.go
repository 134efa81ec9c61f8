// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retailcore/internal/domain/imports"
	"retailcore/internal/domain/inventory"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/sales"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/http/v1/handlers"
	"retailcore/internal/infrastructure/http/v1/middleware"
	"retailcore/pkg/logger"
)

// AnonymousUser acts when authentication is disabled and no X-User-ID is sent.
const AnonymousUser = "anonymous"

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	// JWTValidator validates bearer tokens. Nil disables authentication.
	JWTValidator middleware.JWTValidator

	// RequestKeys enables X-Idempotency-Key replay when set.
	RequestKeys middleware.RequestKeys

	// DB backs the readiness probe; nil for the in-memory store.
	DB handlers.Pinger

	Ledger    *ledger.Service
	Stock     *stock.Service
	Sales     *sales.Service
	Imports   *imports.Service
	Inventory *inventory.Service

	// Development switches gin to debug mode.
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		api.Use(middleware.Auth(cfg.JWTValidator))
	} else {
		api.Use(middleware.StaticUser(AnonymousUser))
	}
	if cfg.RequestKeys != nil {
		api.Use(middleware.Idempotency(cfg.RequestKeys))
	}

	base := handlers.NewBaseHandler()

	salesHandler := handlers.NewSalesHandler(base, cfg.Sales)
	salesGroup := api.Group("/sales")
	{
		salesGroup.POST("", salesHandler.Register)
		salesGroup.GET("", salesHandler.List)
		salesGroup.GET("/:id", salesHandler.Get)
		salesGroup.POST("/:id/void", salesHandler.Void)
	}

	importHandler := handlers.NewImportHandler(base, cfg.Imports)
	importGroup := api.Group("/imports")
	{
		importGroup.POST("/sales", importHandler.ImportSales)
		importGroup.GET("", importHandler.List)
		importGroup.GET("/:id", importHandler.Get)
		importGroup.GET("/:id/errors", importHandler.Errors)
	}

	stockHandler := handlers.NewStockHandler(base, cfg.Stock, cfg.Ledger)
	stockGroup := api.Group("/stock")
	{
		stockGroup.GET("", stockHandler.GetStock)
		stockGroup.GET("/movements", stockHandler.GetMovements)
		stockGroup.GET("/alerts", stockHandler.GetAlerts)
	}

	inventoryHandler := handlers.NewInventoryHandler(base, cfg.Inventory)
	inventoryGroup := api.Group("/inventory")
	{
		inventoryGroup.POST("/initial", inventoryHandler.InitialStock)
		inventoryGroup.POST("/receipts", inventoryHandler.Receipt)
		inventoryGroup.POST("/adjustments", inventoryHandler.Adjustment)
	}

	RegisterKeyedRoutes(api.Group("/replenishment"), "skuId",
		handlers.NewReplenishmentHandler(base, cfg.Stock))

	return router
}
