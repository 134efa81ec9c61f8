package ledger_repo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/postgres"
)

// advisoryLockSpace namespaces SKU advisory locks from any other
// pg_advisory_xact_lock user in the same database.
const advisoryLockSpace = 0x52435354 // "RCST"

// StockRepo implements stock.Repository and stock.Locker over the movements table.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var (
	_ stock.Repository = (*StockRepo)(nil)
	_ stock.Locker     = (*StockRepo)(nil)
)

// NewStockRepo creates a new stock aggregate repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

type skuTotal struct {
	SKUID id.ID `db:"sku_id"`
	Total int64 `db:"total"`
}

// SumSigned aggregates sign*quantity per SKU up to and including cutoff.
func (r *StockRepo) SumSigned(ctx context.Context, skuIDs []id.ID, cutoff time.Time) (map[id.ID]int64, error) {
	if len(skuIDs) == 0 {
		return map[id.ID]int64{}, nil
	}

	return r.sum(ctx, r.sumSignedQuery(skuIDs, cutoff))
}

func (r *StockRepo) sumSignedQuery(skuIDs []id.ID, cutoff time.Time) squirrel.SelectBuilder {
	return r.builder.Select("sku_id", "SUM(sign * quantity)::bigint AS total").
		From(movementsTable).
		Where(squirrel.Eq{"sku_id": skuIDs}).
		Where(squirrel.LtOrEq{"ts": cutoff}).
		GroupBy("sku_id")
}

// SumOutflow aggregates quantity of outgoing movements per SKU in [from, to).
func (r *StockRepo) SumOutflow(ctx context.Context, skuIDs []id.ID, from, to time.Time) (map[id.ID]int64, error) {
	if len(skuIDs) == 0 {
		return map[id.ID]int64{}, nil
	}

	return r.sum(ctx, r.sumOutflowQuery(skuIDs, from, to))
}

func (r *StockRepo) sumOutflowQuery(skuIDs []id.ID, from, to time.Time) squirrel.SelectBuilder {
	return r.builder.Select("sku_id", "SUM(quantity)::bigint AS total").
		From(movementsTable).
		Where(squirrel.Eq{"sku_id": skuIDs, "sign": int(entity.SignOut)}).
		Where(squirrel.GtOrEq{"ts": from}).
		Where(squirrel.Lt{"ts": to}).
		GroupBy("sku_id")
}

func (r *StockRepo) sum(ctx context.Context, q squirrel.SelectBuilder) (map[id.ID]int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []skuTotal
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("aggregate movements: %w", err)
	}

	out := make(map[id.ID]int64, len(rows))
	for _, row := range rows {
		out[row.SKUID] = row.Total
	}
	return out, nil
}

// LockSKUs takes a transaction-scoped advisory lock per SKU.
// Locks are taken in id order so two sales over the same SKUs cannot deadlock.
func (r *StockRepo) LockSKUs(ctx context.Context, skuIDs []id.ID) error {
	if r.txm.GetTx(ctx) == nil {
		return fmt.Errorf("LockSKUs requires transaction context")
	}

	ordered := slices.Clone(skuIDs)
	slices.SortFunc(ordered, func(a, b id.ID) int { return slices.Compare(a[:], b[:]) })
	ordered = slices.Compact(ordered)

	querier := r.txm.GetQuerier(ctx)
	for _, skuID := range ordered {
		if _, err := querier.Exec(ctx,
			"SELECT pg_advisory_xact_lock($1, hashtext($2))",
			advisoryLockSpace, skuID.String(),
		); err != nil {
			return fmt.Errorf("lock sku %s: %w", skuID, err)
		}
	}
	return nil
}
