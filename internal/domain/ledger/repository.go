// Package ledger is the append-only movement log: the only component that writes stock truth.
package ledger

import (
	"context"
	"time"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain"
)

// Repository persists movements. It exposes no update or delete.
type Repository interface {
	// Insert writes m unless a movement with the same idempotency key exists,
	// in which case it writes nothing and reports applied=false.
	Insert(ctx context.Context, m *entity.Movement) (applied bool, err error)

	// InsertBatch is Insert for many movements; applied[i] reports movements[i].
	InsertBatch(ctx context.Context, movements []entity.Movement) (applied []bool, err error)

	// List returns movements matching filter, newest first, and the total count.
	List(ctx context.Context, filter MovementFilter) ([]entity.Movement, int64, error)
}

// MovementFilter narrows a movement listing.
type MovementFilter struct {
	SKUID    *id.ID
	SaleID   *id.ID
	TypeCode string
	From     *time.Time // inclusive
	To       *time.Time // exclusive
	domain.Page
}
