package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/id"
	"retailcore/internal/infrastructure/storage/memory"
)

func TestSeed_Repeatable(t *testing.T) {
	ctx := context.Background()
	a := NewMemory(memory.New())

	first, err := Seed(ctx, a, true)
	require.NoError(t, err)
	assert.Equal(t, 5, first.MovementTypes)
	assert.Equal(t, 2, first.Channels)
	assert.Equal(t, 2, first.Seasons)
	assert.Equal(t, 3, first.SKUs)
	assert.Equal(t, 3, first.Movements)

	second, err := Seed(ctx, a, true)
	require.NoError(t, err)
	assert.Zero(t, second.Channels)
	assert.Zero(t, second.SKUs)
	assert.Zero(t, second.Movements)

	sku, err := a.Catalog.SKUByCode(ctx, "ZAP-003")
	require.NoError(t, err)
	levels, err := a.Stock.StockAsOf(ctx, []id.ID{sku.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), levels[sku.ID])

	alerts, err := a.Stock.Alerts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "ZAP-003", alerts[0].SKUCode, "lowest stock is the most urgent")
}

func TestSeed_ReferenceOnly(t *testing.T) {
	ctx := context.Background()
	a := NewMemory(memory.New())

	rep, err := Seed(ctx, a, false)
	require.NoError(t, err)
	assert.Zero(t, rep.SKUs)

	ch, err := a.Catalog.ChannelByCode(ctx, "fisico")
	require.NoError(t, err)
	assert.True(t, ch.RequiresReference)
}
