// Package main seeds the reference data: movement types, channels and, with
// SEED_DEMO_DATA=true, demo SKUs with opening stock.
package main

import (
	"context"
	"fmt"
	"os"

	"retailcore/internal/app"
	"retailcore/internal/config"
	appctx "retailcore/internal/core/context"
	"retailcore/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}
	if !cfg.UsesPostgres() {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := appctx.WithUserID(context.Background(), "seed")

	a, err := app.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer a.Close()

	rep, err := app.Seed(ctx, a, os.Getenv("SEED_DEMO_DATA") == "true")
	if err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Infow("seeding completed successfully",
		"movement_types", rep.MovementTypes,
		"channels", rep.Channels,
		"seasons", rep.Seasons,
		"skus", rep.SKUs,
		"movements", rep.Movements,
	)
}
