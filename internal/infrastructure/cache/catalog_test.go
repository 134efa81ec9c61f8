package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

type countingReader struct {
	skus  map[string]entity.SKU
	calls int
}

func (r *countingReader) SKUByID(_ context.Context, skuID id.ID) (*entity.SKU, error) {
	r.calls++
	for _, s := range r.skus {
		if s.ID == skuID {
			return &s, nil
		}
	}
	return nil, apperror.NewNotFound("sku", skuID)
}

func (r *countingReader) SKUByCode(_ context.Context, code string) (*entity.SKU, error) {
	r.calls++
	if s, ok := r.skus[code]; ok {
		return &s, nil
	}
	return nil, apperror.NewNotFound("sku", code)
}

func (r *countingReader) ActiveSKUs(context.Context) ([]entity.SKU, error) {
	r.calls++
	out := make([]entity.SKU, 0, len(r.skus))
	for _, s := range r.skus {
		out = append(out, s)
	}
	return out, nil
}

func (r *countingReader) ChannelByID(context.Context, id.ID) (*entity.Channel, error) {
	return nil, apperror.NewNotFound("channel", nil)
}

func (r *countingReader) ChannelByCode(context.Context, string) (*entity.Channel, error) {
	return nil, apperror.NewNotFound("channel", nil)
}

func (r *countingReader) SeasonByID(context.Context, id.ID) (*entity.Season, error) {
	return nil, apperror.NewNotFound("season", nil)
}

func (r *countingReader) ActiveSeasons(context.Context) ([]entity.Season, error) {
	r.calls++
	return []entity.Season{{CatalogBase: entity.NewCatalogBase("S1", "Summer")}}, nil
}

func (r *countingReader) MovementTypeByCode(context.Context, string) (*entity.MovementType, error) {
	return nil, apperror.NewNotFound("movement type", nil)
}

func newReader() *countingReader {
	sku := entity.SKU{CatalogBase: entity.NewCatalogBase("X-1", "Shirt"), ListPrice: types.MustMoney("10.00")}
	return &countingReader{skus: map[string]entity.SKU{"X-1": sku}}
}

func TestCatalogCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	r := newReader()
	c := NewCatalogCache(r, time.Minute)

	first, err := c.SKUByCode(ctx, "x-1")
	require.NoError(t, err)
	second, err := c.SKUByCode(ctx, "X-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, Stats{Entries: 1, Hits: 1, Misses: 1}, c.GetStats())
}

func TestCatalogCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewCatalogCache(newReader(), time.Minute)

	sku, err := c.SKUByCode(ctx, "X-1")
	require.NoError(t, err)
	sku.Name = "mutated"

	again, err := c.SKUByCode(ctx, "X-1")
	require.NoError(t, err)
	assert.Equal(t, "Shirt", again.Name)
}

func TestCatalogCache_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	r := newReader()
	c := NewCatalogCache(r, time.Minute)

	_, err := c.SKUByCode(ctx, "NOPE")
	require.True(t, apperror.IsNotFound(err))
	_, err = c.SKUByCode(ctx, "NOPE")
	require.True(t, apperror.IsNotFound(err))

	assert.Equal(t, 2, r.calls)
}

func TestCatalogCache_Expiry(t *testing.T) {
	ctx := context.Background()
	r := newReader()
	c := NewCatalogCache(r, time.Minute)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.ActiveSeasons(ctx)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	_, err = c.ActiveSeasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)

	now = now.Add(time.Minute)
	_, err = c.ActiveSeasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.calls)
}

func TestCatalogCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	r := newReader()
	c := NewCatalogCache(r, time.Hour)

	_, err := c.SKUByCode(ctx, "X-1")
	require.NoError(t, err)
	_, err = c.ActiveSeasons(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, c.GetStats().Entries)

	c.Invalidate(KindSKU)
	assert.Equal(t, 1, c.GetStats().Entries)

	c.Invalidate("")
	assert.Equal(t, 0, c.GetStats().Entries)
}

func TestCatalogCache_ActiveSKUs(t *testing.T) {
	ctx := context.Background()
	r := newReader()
	c := NewCatalogCache(r, time.Hour)

	first, err := c.ActiveSKUs(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].Code = "MUTATED"

	again, err := c.ActiveSKUs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "X-1", again[0].Code)
	assert.Equal(t, 1, r.calls)

	c.Invalidate(KindSKU)
	_, err = c.ActiveSKUs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, r.calls)
}
