package imports

import (
	"context"

	"retailcore/internal/core/id"
	"retailcore/internal/domain"
)

// BatchLogRepository persists batch logs and their row errors.
type BatchLogRepository interface {
	Create(ctx context.Context, log *BatchLog) error
	// Finish stores the final counts and the full error list of a batch.
	Finish(ctx context.Context, log *BatchLog, errs []BatchError) error
	GetByID(ctx context.Context, batchID id.ID) (*BatchLog, error)
	List(ctx context.Context, page domain.Page) ([]BatchLog, int64, error)
	ListErrors(ctx context.Context, batchID id.ID, page domain.Page) ([]BatchError, int64, error)
}
