package sales

import (
	"context"
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// Repository persists sale headers and lines.
type Repository interface {
	// Create inserts the header. A natural-key collision returns a DuplicateSale AppError.
	Create(ctx context.Context, sale *Sale) error

	// SaveLines inserts the lines of a freshly created sale.
	SaveLines(ctx context.Context, saleID id.ID, lines []Line) error

	// UpdateTotal stores the recomputed total.
	UpdateTotal(ctx context.Context, saleID id.ID, total types.Money, updatedAt time.Time) error

	// MarkVoid flips the state to VOID and records who, when and why.
	MarkVoid(ctx context.Context, saleID id.ID, voidedBy string, voidedAt time.Time, reason string) error

	// GetByID returns the header or a NotFound AppError.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate is GetByID holding a row lock until the unit of work ends.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetLines returns the lines of a sale ordered by line number.
	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)

	// ExistsByNaturalKey reports whether a sale with (ts, channel, reference) exists.
	ExistsByNaturalKey(ctx context.Context, ts time.Time, channelID id.ID, reference string) (bool, error)

	// List returns headers matching filter, newest first, and the total count.
	List(ctx context.Context, filter Filter) ([]Sale, int64, error)
}
