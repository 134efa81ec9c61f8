// Package catalog defines the reference-data ports used by the workflows and
// the season assignment policy.
package catalog

import (
	"context"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
)

// Reader resolves reference data by id or code.
// Lookups of unknown entries return an apperror NotFound.
type Reader interface {
	SKUByID(ctx context.Context, skuID id.ID) (*entity.SKU, error)
	SKUByCode(ctx context.Context, code string) (*entity.SKU, error)
	// ActiveSKUs returns every SKU flagged active, ordered by code.
	ActiveSKUs(ctx context.Context) ([]entity.SKU, error)

	ChannelByID(ctx context.Context, channelID id.ID) (*entity.Channel, error)
	ChannelByCode(ctx context.Context, code string) (*entity.Channel, error)

	SeasonByID(ctx context.Context, seasonID id.ID) (*entity.Season, error)
	// ActiveSeasons returns every season flagged active, in no particular order.
	ActiveSeasons(ctx context.Context) ([]entity.Season, error)

	MovementTypeByCode(ctx context.Context, code string) (*entity.MovementType, error)
}

// Writer upserts reference data. Used by seeding and administration.
type Writer interface {
	SaveSKU(ctx context.Context, sku *entity.SKU) error
	SaveChannel(ctx context.Context, channel *entity.Channel) error
	SaveSeason(ctx context.Context, season *entity.Season) error
	SaveMovementType(ctx context.Context, mt *entity.MovementType) error
}

// Repository is the full catalog store.
type Repository interface {
	Reader
	Writer
}
