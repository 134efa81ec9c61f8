package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

func TestSale_AddLineComputesImporteAndTotal(t *testing.T) {
	sale := NewSale(id.New(), time.Now().UTC(), id.New())

	l1 := sale.AddLine(id.New(), 3, types.MustMoney("0.335"), types.MustMoney("0.50"))
	l2 := sale.AddLine(id.New(), 2, types.MustMoney("19.99"), types.MustMoney("25"))

	assert.Equal(t, 1, l1.LineNo)
	assert.Equal(t, 2, l2.LineNo)
	assert.Equal(t, "1.01", l1.Importe.StringFixed(2))
	assert.Equal(t, "39.98", l2.Importe.StringFixed(2))
	assert.Equal(t, "40.99", sale.Total.StringFixed(2))
}

func TestSale_LineIDsAreDerivedFromSale(t *testing.T) {
	saleID := id.New()
	a := NewSale(saleID, time.Now().UTC(), id.New())
	b := NewSale(saleID, time.Now().UTC(), id.New())

	la := a.AddLine(id.New(), 1, types.Zero(), types.Zero())
	lb := b.AddLine(id.New(), 1, types.Zero(), types.Zero())
	assert.Equal(t, la.ID, lb.ID)

	other := NewSale(id.New(), time.Now().UTC(), id.New())
	lo := other.AddLine(id.New(), 1, types.Zero(), types.Zero())
	assert.NotEqual(t, la.ID, lo.ID)
}

func TestSale_Validate(t *testing.T) {
	ctx := context.Background()

	empty := NewSale(id.New(), time.Now().UTC(), id.New())
	require.Error(t, empty.Validate(ctx))

	bad := NewSale(id.New(), time.Now().UTC(), id.New())
	bad.AddLine(id.New(), 0, types.MustMoney("1"), types.Zero())
	err := bad.Validate(ctx)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 1, appErr.Details["lineNo"])

	negative := NewSale(id.New(), time.Now().UTC(), id.New())
	negative.AddLine(id.New(), 1, types.MustMoney("-1"), types.Zero())
	assert.True(t, apperror.IsValidation(negative.Validate(ctx)))

	ok2 := NewSale(id.New(), time.Now().UTC(), id.New())
	ok2.AddLine(id.New(), 1, types.Zero(), types.Zero())
	assert.NoError(t, ok2.Validate(ctx))
}

func TestSale_ReferenceOr(t *testing.T) {
	s := NewSale(id.New(), time.Now().UTC(), id.New())
	assert.Equal(t, "fallback", s.ReferenceOr("fallback"))
	ref := "T-1"
	s.Reference = &ref
	assert.Equal(t, "T-1", s.ReferenceOr("fallback"))
}
