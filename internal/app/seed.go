package app

import (
	"context"
	"fmt"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/inventory"
	"retailcore/internal/domain/stock"
	"retailcore/pkg/logger"
)

// SeedReport counts the entries written by Seed. Channels, seasons, SKUs and
// movements that already existed are not counted.
type SeedReport struct {
	MovementTypes int
	Channels      int
	SKUs          int
	Seasons       int
	Movements     int
}

// Seed writes the reference data every installation needs: the movement types
// and the two default channels. With demo set it also adds sample SKUs, seasons,
// opening balances and replenishment parameters. Seed can be run repeatedly.
func Seed(ctx context.Context, a *App, demo bool) (SeedReport, error) {
	var rep SeedReport

	for _, mt := range entity.DefaultMovementTypes() {
		if err := a.Catalog.SaveMovementType(ctx, &mt); err != nil {
			return rep, fmt.Errorf("seed movement type %s: %w", mt.Code, err)
		}
		rep.MovementTypes++
	}

	channels := []entity.Channel{
		{CatalogBase: entity.NewCatalogBase(entity.ChannelInPerson, "Tienda fisica"), RequiresReference: true},
		{CatalogBase: entity.NewCatalogBase("ONLINE", "Tienda online")},
	}
	for i := range channels {
		created, err := saveOnce(ctx, "channel", channels[i].Code, func() error {
			return a.Catalog.SaveChannel(ctx, &channels[i])
		})
		if err != nil {
			return rep, err
		}
		rep.Channels += created
	}

	if !demo {
		return rep, nil
	}

	year := time.Now().UTC().Year()
	seasons := []entity.Season{
		{
			CatalogBase: entity.NewCatalogBase(fmt.Sprintf("VERANO-%d", year), "Verano"),
			StartDate:   time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(year, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			CatalogBase: entity.NewCatalogBase(fmt.Sprintf("ANUAL-%d", year), "Temporada anual"),
			StartDate:   time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}
	for i := range seasons {
		created, err := saveOnce(ctx, "season", seasons[i].Code, func() error {
			return a.Catalog.SaveSeason(ctx, &seasons[i])
		})
		if err != nil {
			return rep, err
		}
		rep.Seasons += created
	}

	demoSKUs := []struct {
		code, name, price string
		opening           int64
	}{
		{"CAM-001", "Camisa lino", "24.90", 40},
		{"PAN-002", "Pantalon chino", "39.00", 12},
		{"ZAP-003", "Zapatilla urbana", "59.50", 3},
	}
	opened := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, d := range demoSKUs {
		sku := entity.SKU{CatalogBase: entity.NewCatalogBase(d.code, d.name), ListPrice: types.MustMoney(d.price)}
		created, err := saveOnce(ctx, "sku", sku.Code, func() error {
			return a.Catalog.SaveSKU(ctx, &sku)
		})
		if err != nil {
			return rep, err
		}
		rep.SKUs += created

		res, err := a.Inventory.RegisterInitialStock(ctx, inventory.Input{
			SKUCode:   d.code,
			Timestamp: &opened,
			Quantity:  d.opening,
			Reference: "SEED",
		})
		if err != nil {
			return rep, fmt.Errorf("seed opening stock %s: %w", d.code, err)
		}
		if res.Applied {
			rep.Movements++
		}

		existing, err := a.Catalog.SKUByCode(ctx, d.code)
		if err != nil {
			return rep, err
		}
		if _, err := a.Stock.SaveParameter(ctx, stock.Parameter{
			SKUID:        existing.ID,
			MinStock:     5,
			LeadTimeDays: 7,
			SafetyStock:  3,
		}); err != nil {
			return rep, fmt.Errorf("seed parameter %s: %w", d.code, err)
		}
	}
	return rep, nil
}

// saveOnce runs save and treats a duplicate code as already seeded.
func saveOnce(ctx context.Context, kind, code string, save func() error) (int, error) {
	err := save()
	switch {
	case err == nil:
		return 1, nil
	case apperror.HasCode(err, apperror.CodeDuplicate):
		logger.Debug(ctx, "already seeded", "kind", kind, "code", code)
		return 0, nil
	default:
		return 0, fmt.Errorf("seed %s %s: %w", kind, code, err)
	}
}
