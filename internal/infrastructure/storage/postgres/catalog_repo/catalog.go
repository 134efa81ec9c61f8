package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/infrastructure/storage/postgres"
)

// CatalogRepo implements catalog.Repository.
// Writes fire the catalog_changed trigger that invalidates the read cache.
type CatalogRepo struct {
	skus          *referenceTable[entity.SKU]
	channels      *referenceTable[entity.Channel]
	seasons       *referenceTable[entity.Season]
	movementTypes *referenceTable[entity.MovementType]
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txm *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		skus:          newReferenceTable[entity.SKU](txm, "sku", "skus"),
		channels:      newReferenceTable[entity.Channel](txm, "channel", "channels"),
		seasons:       newReferenceTable[entity.Season](txm, "season", "seasons"),
		movementTypes: newReferenceTable[entity.MovementType](txm, "movement type", "movement_types"),
	}
}

func (r *CatalogRepo) SKUByID(ctx context.Context, skuID id.ID) (*entity.SKU, error) {
	return r.skus.getBy(ctx, "id", skuID)
}

func (r *CatalogRepo) SKUByCode(ctx context.Context, code string) (*entity.SKU, error) {
	return r.skus.getBy(ctx, "code", entity.NormalizeCode(code))
}

func (r *CatalogRepo) ChannelByID(ctx context.Context, channelID id.ID) (*entity.Channel, error) {
	return r.channels.getBy(ctx, "id", channelID)
}

func (r *CatalogRepo) ChannelByCode(ctx context.Context, code string) (*entity.Channel, error) {
	return r.channels.getBy(ctx, "code", entity.NormalizeCode(code))
}

func (r *CatalogRepo) SeasonByID(ctx context.Context, seasonID id.ID) (*entity.Season, error) {
	return r.seasons.getBy(ctx, "id", seasonID)
}

func (r *CatalogRepo) ActiveSeasons(ctx context.Context) ([]entity.Season, error) {
	return r.seasons.list(ctx, squirrel.Eq{"active": true})
}

func (r *CatalogRepo) MovementTypeByCode(ctx context.Context, code string) (*entity.MovementType, error) {
	return r.movementTypes.getBy(ctx, "code", entity.NormalizeCode(code))
}

// ActiveSKUs returns every active SKU ordered by code.
func (r *CatalogRepo) ActiveSKUs(ctx context.Context) ([]entity.SKU, error) {
	return r.skus.list(ctx, squirrel.Eq{"active": true})
}

func (r *CatalogRepo) SaveSKU(ctx context.Context, sku *entity.SKU) error {
	sku.Code = entity.NormalizeCode(sku.Code)
	return r.skus.upsert(ctx, sku, sku.Code)
}

func (r *CatalogRepo) SaveChannel(ctx context.Context, channel *entity.Channel) error {
	channel.Code = entity.NormalizeCode(channel.Code)
	return r.channels.upsert(ctx, channel, channel.Code)
}

func (r *CatalogRepo) SaveSeason(ctx context.Context, season *entity.Season) error {
	season.Code = entity.NormalizeCode(season.Code)
	return r.seasons.upsert(ctx, season, season.Code)
}

// SaveMovementType upserts by id; seeding keeps ids stable by reading the
// existing row first.
func (r *CatalogRepo) SaveMovementType(ctx context.Context, mt *entity.MovementType) error {
	mt.Code = entity.NormalizeCode(mt.Code)
	existing, err := r.movementTypes.getBy(ctx, "code", mt.Code)
	switch {
	case err == nil:
		mt.ID = existing.ID
	case !apperror.IsNotFound(err):
		return err
	}
	return r.movementTypes.upsert(ctx, mt, mt.Code)
}
