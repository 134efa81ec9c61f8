// Package catalog_repo provides the PostgreSQL reference catalogs: SKUs,
// channels, seasons and movement types.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/infrastructure/storage/postgres"
)

// referenceTable provides lookup and upsert for one catalog table whose rows
// map onto T through "db" tags. Every catalog has a unique code column.
type referenceTable[T any] struct {
	txm        *postgres.TxManager
	entityName string
	tableName  string
	selectCols []string
	builder    squirrel.StatementBuilderType
}

func newReferenceTable[T any](txm *postgres.TxManager, entityName, tableName string) *referenceTable[T] {
	return &referenceTable[T]{
		txm:        txm,
		entityName: entityName,
		tableName:  tableName,
		selectCols: postgres.ExtractDBColumns[T](),
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// getBy returns the single row with column = value, or NotFound.
func (r *referenceTable[T]) getBy(ctx context.Context, column string, value any) (*T, error) {
	sql, args, err := r.builder.Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{column: value}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out T
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, value)
		}
		return nil, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return &out, nil
}

// list returns the rows matching where, ordered by code.
func (r *referenceTable[T]) list(ctx context.Context, where any) ([]T, error) {
	q := r.builder.Select(r.selectCols...).From(r.tableName).OrderBy("code")
	if where != nil {
		q = q.Where(where)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return out, nil
}

// upsert inserts entity or overwrites the row with the same id.
// A code already taken by another row is reported as a Duplicate.
func (r *referenceTable[T]) upsert(ctx context.Context, entity *T, code string) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}

	cols := make([]string, 0, len(r.selectCols))
	vals := make([]any, 0, len(r.selectCols))
	set := ""
	for _, col := range r.selectCols {
		cols = append(cols, col)
		vals = append(vals, data[col])
		if col == "id" {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += col + " = EXCLUDED." + col
	}

	sql, args, err := r.builder.Insert(r.tableName).
		Columns(cols...).
		Values(vals...).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + set).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewDuplicate(r.entityName, "code", code)
		}
		return fmt.Errorf("upsert %s: %w", r.tableName, err)
	}
	return nil
}
