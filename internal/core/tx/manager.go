// Package tx defines the unit-of-work contract used by every workflow.
// Domain services depend on this interface; the Postgres and in-memory
// implementations live under internal/infrastructure/storage.
package tx

import (
	"context"
)

// Manager runs a function as one atomic unit of work.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, every write made through ctx is rolled back.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
