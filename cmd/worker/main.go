// Package main is the entry point for the retailcore background worker.
// It scans replenishment alerts, expires request idempotency keys and reports
// pool statistics. It needs the Postgres store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retailcore/internal/app"
	"retailcore/internal/config"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/postgres"
	"retailcore/pkg/logger"
	"retailcore/pkg/metrics"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	if !cfg.UsesPostgres() {
		log.Fatal("worker requires DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting retailcore worker", "interval", cfg.WorkerInterval)

	a, err := app.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize storage", "error", err)
	}
	defer a.Close()
	a.StartListener(ctx)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	worker := NewWorker(a.Stock, a.RequestKeys, a.Pool, cfg.WorkerInterval, log).
		WithSnapshot(a.TxManager)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("shutting down worker...")
	wg.Wait()
	log.Info("worker stopped")
}

// AlertScanner computes replenishment alerts.
type AlertScanner interface {
	Alerts(ctx context.Context, cutoff *time.Time) ([]stock.Alert, error)
}

// KeyCleaner removes expired request keys.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Snapshotter runs fn inside a read-only transaction.
type Snapshotter interface {
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Worker runs the periodic jobs.
type Worker struct {
	alerts   AlertScanner
	keys     KeyCleaner
	snapshot Snapshotter
	pool     *postgres.Pool
	interval time.Duration
	log      *logger.Logger
}

// NewWorker creates a worker. pool may be nil.
func NewWorker(alerts AlertScanner, keys KeyCleaner, pool *postgres.Pool, interval time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		alerts:   alerts,
		keys:     keys,
		pool:     pool,
		interval: interval,
		log:      log.WithComponent("worker"),
	}
}

// WithSnapshot makes the alert scan read every aggregate from one snapshot.
func (w *Worker) WithSnapshot(s Snapshotter) *Worker {
	w.snapshot = s
	return w
}

// Run executes the jobs until ctx is cancelled. The alert scan also runs once at start.
func (w *Worker) Run(ctx context.Context) {
	ctx = logger.WithLogger(ctx, w.log)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	w.scanAlerts(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scanAlerts(ctx)
			if w.pool != nil {
				postgres.LogPoolStats(ctx, w.pool.Unwrap())
			}
		case <-cleanupTicker.C:
			w.cleanupKeys(ctx)
		}
	}
}

func (w *Worker) scanAlerts(ctx context.Context) {
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	var alerts []stock.Alert
	scan := func(ctx context.Context) error {
		var err error
		alerts, err = w.alerts.Alerts(ctx, nil)
		return err
	}

	var err error
	if w.snapshot != nil {
		err = w.snapshot.ReadOnly(ctx, scan)
	} else {
		err = scan(ctx)
	}
	if err != nil {
		w.log.Errorw("alert scan failed", "error", err)
		return
	}

	counts := map[stock.Level]int{stock.LevelRed: 0, stock.LevelYellow: 0, stock.LevelGreen: 0}
	for _, a := range alerts {
		counts[a.Level]++
	}
	for level, n := range counts {
		metrics.StockAlerts.WithLabelValues(string(level)).Set(float64(n))
	}

	if counts[stock.LevelRed] > 0 {
		w.log.Warnw("SKUs below minimum stock",
			"red", counts[stock.LevelRed],
			"yellow", counts[stock.LevelYellow],
		)
		return
	}
	w.log.Debugw("alert scan finished", "skus", len(alerts), "yellow", counts[stock.LevelYellow])
}

func (w *Worker) cleanupKeys(ctx context.Context) {
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())
	n, err := w.keys.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("request key cleanup failed", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}
