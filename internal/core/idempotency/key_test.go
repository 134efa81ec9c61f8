package idempotency

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/id"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("1", "2", "SALE")
	b := Key("1", "2", "SALE")
	assert.Equal(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestKey_OrderAndContentMatter(t *testing.T) {
	assert.NotEqual(t, Key("1", "2", "SALE"), Key("2", "1", "SALE"))
	assert.NotEqual(t, Key("1", "2", "SALE"), Key("1", "2", "VOID"))
	assert.NotEqual(t, Key("12", "3"), Key("1", "23"))
}

func TestSaleAndVoidKeysDiffer(t *testing.T) {
	saleID, lineID := id.New(), id.New()

	assert.Equal(t, SaleKey(saleID, lineID), SaleKey(saleID, lineID))
	assert.NotEqual(t, SaleKey(saleID, lineID), VoidKey(saleID, lineID))
	assert.NotEqual(t, SaleKey(saleID, lineID), SaleKey(saleID, id.New()))
}

func TestAdjustmentKey_NormalizesTimestamp(t *testing.T) {
	sku := id.New()
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	withNanos := ts.Add(450 * time.Millisecond)
	otherZone := ts.In(time.FixedZone("UTC-5", -5*3600))

	base := AdjustmentKey(sku, ts, "RECEIPT", "INV-1")
	assert.Equal(t, base, AdjustmentKey(sku, withNanos, "RECEIPT", "INV-1"))
	assert.Equal(t, base, AdjustmentKey(sku, otherZone, "RECEIPT", " INV-1 "))
	assert.NotEqual(t, base, AdjustmentKey(sku, ts, "RECEIPT", ""))
	assert.NotEqual(t, base, AdjustmentKey(sku, ts.Add(time.Second), "RECEIPT", "INV-1"))
}
