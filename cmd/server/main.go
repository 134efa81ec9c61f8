// Package main is the entry point for the retailcore API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailcore/internal/app"
	"retailcore/internal/config"
	"retailcore/internal/domain/auth"
	v1 "retailcore/internal/infrastructure/http/v1"
	"retailcore/pkg/logger"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Infow("starting retailcore server", "env", cfg.AppEnv, "postgres", cfg.UsesPostgres())

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize storage", "error", err)
	}
	defer a.Close()
	a.StartListener(ctx)

	routerCfg := v1.RouterConfig{
		Logger:      log,
		Ledger:      a.Ledger,
		Stock:       a.Stock,
		Sales:       a.Sales,
		Imports:     a.Imports,
		Inventory:   a.Inventory,
		Development: cfg.Development(),
	}
	if a.Pool != nil {
		routerCfg.DB = a.Pool
		routerCfg.RequestKeys = a.RequestKeys
	}
	if cfg.AuthDisabled {
		log.Warn("authentication disabled, acting user comes from X-User-ID")
	} else {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}
