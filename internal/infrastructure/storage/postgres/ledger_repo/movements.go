// Package ledger_repo provides the PostgreSQL movement ledger, its stock
// aggregates and the replenishment parameters that sit next to it.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/infrastructure/storage/postgres"
)

const movementsTable = "movements"

var movementColumns = []string{
	"id", "ts", "sku_id", "movement_type_id", "movement_type_code",
	"quantity", "sign", "channel_id", "sale_id", "sale_line_id",
	"reference", "observation", "idempotency_key", "user_id", "created_at",
}

// MovementRepo implements ledger.Repository.
// Rows are only ever inserted; the table has no UPDATE or DELETE path.
type MovementRepo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchExecutor
	builder squirrel.StatementBuilderType
}

var _ ledger.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txm:     txm,
		batch:   postgres.NewBatchExecutor(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *MovementRepo) insertSQL(m *entity.Movement) (string, []any, error) {
	return r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.Timestamp, m.SKUID, m.TypeID, m.TypeCode,
			m.Quantity, int(m.Sign), m.ChannelID, m.SaleID, m.SaleLineID,
			m.Reference, m.Observation, m.IdempotencyKey, m.UserID, m.CreatedAt,
		).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING").
		ToSql()
}

// Insert writes m unless its idempotency key is already recorded.
func (r *MovementRepo) Insert(ctx context.Context, m *entity.Movement) (bool, error) {
	sql, args, err := r.insertSQL(m)
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, translateInsertErr(err, "insert movement")
	}
	return tag.RowsAffected() == 1, nil
}

// InsertBatch queues one conditional insert per movement in a single round-trip.
// A key repeated inside the batch is applied once, by its first occurrence.
func (r *MovementRepo) InsertBatch(ctx context.Context, movements []entity.Movement) ([]bool, error) {
	if len(movements) == 0 {
		return nil, nil
	}

	queries := make([]postgres.BatchQuery, len(movements))
	for i := range movements {
		sql, args, err := r.insertSQL(&movements[i])
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}
		queries[i] = postgres.BatchQuery{SQL: sql, Args: args}
	}

	affected, err := r.batch.ExecuteBatch(ctx, queries)
	if err != nil {
		return nil, translateInsertErr(err, "insert movements")
	}

	applied := make([]bool, len(affected))
	for i, n := range affected {
		applied[i] = n == 1
	}
	return applied, nil
}

// translateInsertErr maps constraint failures the service did not catch to
// application errors; anything else stays an internal error.
func translateInsertErr(err error, op string) error {
	switch {
	case postgres.IsCheckViolation(err, postgres.ConstraintMovementQuantity):
		return apperror.NewValidation("movement quantity must be positive").WithCause(err)
	case postgres.IsCheckViolation(err, postgres.ConstraintMovementSign):
		return apperror.NewValidation("movement sign must be +1 or -1").WithCause(err)
	}
	if entity, ok := postgres.ViolatedReference(err); ok {
		return apperror.NewNotFound(entity, nil).WithCause(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// List returns movements newest first.
func (r *MovementRepo) List(ctx context.Context, f ledger.MovementFilter) ([]entity.Movement, int64, error) {
	q := r.builder.Select(movementColumns...).From(movementsTable)

	if f.SKUID != nil {
		q = q.Where(squirrel.Eq{"sku_id": *f.SKUID})
	}
	if f.SaleID != nil {
		q = q.Where(squirrel.Eq{"sale_id": *f.SaleID})
	}
	if f.TypeCode != "" {
		q = q.Where(squirrel.Eq{"movement_type_code": f.TypeCode})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"ts": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"ts": *f.To})
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	sql, args, err := q.OrderBy("ts DESC", "created_at DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.Movement
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select movements: %w", err)
	}
	return movements, total, nil
}
