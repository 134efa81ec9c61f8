// Package stock answers point-in-time stock and demand questions by aggregating
// the movement ledger, and derives replenishment alerts from them.
package stock

import (
	"context"
	"time"

	"retailcore/internal/core/id"
)

// Repository aggregates ledger rows.
type Repository interface {
	// SumSigned returns sum(sign*quantity) per SKU over movements with timestamp <= cutoff.
	// SKUs without movements are absent from the result.
	SumSigned(ctx context.Context, skuIDs []id.ID, cutoff time.Time) (map[id.ID]int64, error)

	// SumOutflow returns sum(quantity) of sign -1 movements per SKU with
	// from <= timestamp < to.
	SumOutflow(ctx context.Context, skuIDs []id.ID, from, to time.Time) (map[id.ID]int64, error)
}

// Locker serializes concurrent writers of the same SKUs for the rest of the
// current unit of work.
type Locker interface {
	LockSKUs(ctx context.Context, skuIDs []id.ID) error
}

// ParameterRepository stores replenishment parameters, one per SKU.
type ParameterRepository interface {
	Save(ctx context.Context, p *Parameter) error
	GetBySKU(ctx context.Context, skuID id.ID) (*Parameter, error)
	List(ctx context.Context) ([]Parameter, error)
	Delete(ctx context.Context, skuID id.ID) error
}
