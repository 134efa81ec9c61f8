package memory

import (
	"context"
	"slices"
	"strings"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalog"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct{ s *Store }

var _ catalog.Repository = (*CatalogRepo)(nil)

func (r *CatalogRepo) SKUByID(_ context.Context, skuID id.ID) (*entity.SKU, error) {
	var out *entity.SKU
	err := r.s.read(func(st *state) error {
		v, ok := st.skus[skuID]
		if !ok {
			return apperror.NewNotFound("sku", skuID)
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *CatalogRepo) SKUByCode(_ context.Context, code string) (*entity.SKU, error) {
	code = entity.NormalizeCode(code)
	var out *entity.SKU
	err := r.s.read(func(st *state) error {
		for _, v := range st.skus {
			if v.Code == code {
				out = &v
				return nil
			}
		}
		return apperror.NewNotFound("sku", code)
	})
	return out, err
}

func (r *CatalogRepo) ActiveSKUs(_ context.Context) ([]entity.SKU, error) {
	var out []entity.SKU
	err := r.s.read(func(st *state) error {
		for _, v := range st.skus {
			if v.Active {
				out = append(out, v)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b entity.SKU) int { return strings.Compare(a.Code, b.Code) })
	return out, err
}

func (r *CatalogRepo) ChannelByID(_ context.Context, channelID id.ID) (*entity.Channel, error) {
	var out *entity.Channel
	err := r.s.read(func(st *state) error {
		v, ok := st.channels[channelID]
		if !ok {
			return apperror.NewNotFound("channel", channelID)
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *CatalogRepo) ChannelByCode(_ context.Context, code string) (*entity.Channel, error) {
	code = entity.NormalizeCode(code)
	var out *entity.Channel
	err := r.s.read(func(st *state) error {
		for _, v := range st.channels {
			if v.Code == code {
				out = &v
				return nil
			}
		}
		return apperror.NewNotFound("channel", code)
	})
	return out, err
}

func (r *CatalogRepo) SeasonByID(_ context.Context, seasonID id.ID) (*entity.Season, error) {
	var out *entity.Season
	err := r.s.read(func(st *state) error {
		v, ok := st.seasons[seasonID]
		if !ok {
			return apperror.NewNotFound("season", seasonID)
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *CatalogRepo) ActiveSeasons(_ context.Context) ([]entity.Season, error) {
	var out []entity.Season
	err := r.s.read(func(st *state) error {
		for _, v := range st.seasons {
			if v.Active {
				out = append(out, v)
			}
		}
		return nil
	})
	return out, err
}

func (r *CatalogRepo) MovementTypeByCode(_ context.Context, code string) (*entity.MovementType, error) {
	code = entity.NormalizeCode(code)
	var out *entity.MovementType
	err := r.s.read(func(st *state) error {
		v, ok := st.movementTypes[code]
		if !ok {
			return apperror.NewNotFound("movement type", code)
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *CatalogRepo) SaveSKU(ctx context.Context, sku *entity.SKU) error {
	sku.Code = entity.NormalizeCode(sku.Code)
	return r.s.write(ctx, func(st *state) error {
		for _, v := range st.skus {
			if v.Code == sku.Code && v.ID != sku.ID {
				return apperror.NewDuplicate("sku", "code", sku.Code)
			}
		}
		st.skus[sku.ID] = *sku
		return nil
	})
}

func (r *CatalogRepo) SaveChannel(ctx context.Context, channel *entity.Channel) error {
	channel.Code = entity.NormalizeCode(channel.Code)
	return r.s.write(ctx, func(st *state) error {
		for _, v := range st.channels {
			if v.Code == channel.Code && v.ID != channel.ID {
				return apperror.NewDuplicate("channel", "code", channel.Code)
			}
		}
		st.channels[channel.ID] = *channel
		return nil
	})
}

func (r *CatalogRepo) SaveSeason(ctx context.Context, season *entity.Season) error {
	season.Code = entity.NormalizeCode(season.Code)
	return r.s.write(ctx, func(st *state) error {
		for _, v := range st.seasons {
			if v.Code == season.Code && v.ID != season.ID {
				return apperror.NewDuplicate("season", "code", season.Code)
			}
		}
		st.seasons[season.ID] = *season
		return nil
	})
}

func (r *CatalogRepo) SaveMovementType(ctx context.Context, mt *entity.MovementType) error {
	mt.Code = entity.NormalizeCode(mt.Code)
	return r.s.write(ctx, func(st *state) error {
		st.movementTypes[mt.Code] = *mt
		return nil
	})
}
