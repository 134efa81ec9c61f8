package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/storage/postgres"
)

const parametersTable = "replenishment_parameters"

var parameterColumns = []string{"id", "sku_id", "min_stock", "lead_time_days", "safety_stock", "updated_at"}

// ParameterRepo implements stock.ParameterRepository.
type ParameterRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ stock.ParameterRepository = (*ParameterRepo)(nil)

// NewParameterRepo creates a new replenishment parameter repository.
func NewParameterRepo(txm *postgres.TxManager) *ParameterRepo {
	return &ParameterRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Save upserts the parameter of p.SKUID.
func (r *ParameterRepo) Save(ctx context.Context, p *stock.Parameter) error {
	sql, args, err := r.builder.Insert(parametersTable).
		Columns(parameterColumns...).
		Values(p.ID, p.SKUID, p.MinStock, p.LeadTimeDays, p.SafetyStock, p.UpdatedAt).
		Suffix(`ON CONFLICT (sku_id) DO UPDATE SET
			min_stock = EXCLUDED.min_stock,
			lead_time_days = EXCLUDED.lead_time_days,
			safety_stock = EXCLUDED.safety_stock,
			updated_at = EXCLUDED.updated_at
		RETURNING id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&p.ID); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewNotFound("sku", p.SKUID)
		}
		return fmt.Errorf("upsert parameter: %w", err)
	}
	return nil
}

// GetBySKU returns the parameter of skuID or NotFound.
func (r *ParameterRepo) GetBySKU(ctx context.Context, skuID id.ID) (*stock.Parameter, error) {
	sql, args, err := r.builder.Select(parameterColumns...).
		From(parametersTable).
		Where(squirrel.Eq{"sku_id": skuID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p stock.Parameter
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("replenishment parameter", skuID)
		}
		return nil, fmt.Errorf("get parameter: %w", err)
	}
	return &p, nil
}

// List returns every parameter.
func (r *ParameterRepo) List(ctx context.Context) ([]stock.Parameter, error) {
	sql, args, err := r.builder.Select(parameterColumns...).
		From(parametersTable).
		OrderBy("sku_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var params []stock.Parameter
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &params, sql, args...); err != nil {
		return nil, fmt.Errorf("select parameters: %w", err)
	}
	return params, nil
}

// Delete removes the parameter of skuID.
func (r *ParameterRepo) Delete(ctx context.Context, skuID id.ID) error {
	sql, args, err := r.builder.Delete(parametersTable).
		Where(squirrel.Eq{"sku_id": skuID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete parameter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("replenishment parameter", skuID)
	}
	return nil
}
