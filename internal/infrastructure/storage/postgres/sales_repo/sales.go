// Package sales_repo provides the PostgreSQL sale header and line store.
package sales_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/sales"
	"retailcore/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "sales"
	saleLinesTable = "sale_lines"
)

var (
	saleColumns = []string{
		"id", "ts", "channel_id", "season_id", "reference", "state", "total",
		"created_by", "created_at", "updated_at", "voided_by", "voided_at", "void_reason",
	}
	lineColumns = []string{
		"id", "sale_id", "line_no", "sku_id", "quantity", "unit_price", "list_price", "importe",
	}
)

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txm     *postgres.TxManager
	copy    *postgres.BatchInserter
	builder squirrel.StatementBuilderType
}

var _ sales.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txm:     txm,
		copy:    postgres.NewBatchInserter(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header. The partial unique index on (ts, channel_id, reference)
// backs the duplicate check done by the workflow.
func (r *SaleRepo) Create(ctx context.Context, s *sales.Sale) error {
	sql, args, err := r.builder.Insert(salesTable).
		Columns(saleColumns...).
		Values(
			s.ID, s.Timestamp, s.ChannelID, s.SeasonID, s.Reference, s.State, s.Total,
			s.CreatedBy, s.CreatedAt, s.UpdatedAt, s.VoidedBy, s.VoidedAt, s.VoidReason,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		switch {
		case postgres.IsUniqueViolation(err, postgres.ConstraintSaleNaturalKey):
			return apperror.NewDuplicateSale(s.Timestamp.Format(time.RFC3339), s.ChannelID.String(), s.ReferenceOr("")).
				WithCause(err)
		case postgres.IsUniqueViolation(err, ""):
			return apperror.NewDuplicate("sale", "id", s.ID.String())
		case postgres.IsForeignKeyViolation(err):
			return apperror.NewValidation("sale references an unknown channel or season").WithCause(err)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// SaveLines copies the lines in; a sale's lines are written once, inside its unit of work.
func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sales.Line) error {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{l.ID, saleID, l.LineNo, l.SKUID, l.Quantity, l.UnitPrice, l.ListPrice, l.Importe}
	}
	if _, err := r.copy.CopyFromSlice(ctx, saleLinesTable, lineColumns, rows); err != nil {
		return fmt.Errorf("copy sale lines: %w", err)
	}
	return nil
}

// UpdateTotal stores the recomputed total.
func (r *SaleRepo) UpdateTotal(ctx context.Context, saleID id.ID, total types.Money, updatedAt time.Time) error {
	return r.update(ctx, saleID, map[string]any{
		"total":      total,
		"updated_at": updatedAt,
	})
}

// MarkVoid flips the sale to VOID.
func (r *SaleRepo) MarkVoid(ctx context.Context, saleID id.ID, voidedBy string, voidedAt time.Time, reason string) error {
	return r.update(ctx, saleID, map[string]any{
		"state":       sales.StateVoid,
		"voided_by":   voidedBy,
		"voided_at":   voidedAt,
		"void_reason": reason,
		"updated_at":  voidedAt,
	})
}

func (r *SaleRepo) update(ctx context.Context, saleID id.ID, set map[string]any) error {
	sql, args, err := r.builder.Update(salesTable).
		SetMap(set).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", saleID)
	}
	return nil
}

// GetByID returns the header or NotFound.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.get(ctx, saleID, "")
}

// GetForUpdate locks the header row until the transaction ends.
func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	return r.get(ctx, saleID, "FOR UPDATE")
}

func (r *SaleRepo) get(ctx context.Context, saleID id.ID, suffix string) (*sales.Sale, error) {
	q := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s sales.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

// GetLines returns the lines of a sale by line number.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sales.Line, error) {
	sql, args, err := r.builder.Select(lineColumns...).
		From(saleLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sales.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select sale lines: %w", err)
	}
	return lines, nil
}

// ExistsByNaturalKey reports whether (ts, channel, reference) is taken, void sales included.
func (r *SaleRepo) ExistsByNaturalKey(ctx context.Context, ts time.Time, channelID id.ID, reference string) (bool, error) {
	sql, args, err := r.naturalKeyQuery(ts, channelID, reference).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check natural key: %w", err)
	}
	return exists, nil
}

func (r *SaleRepo) naturalKeyQuery(ts time.Time, channelID id.ID, reference string) squirrel.SelectBuilder {
	return r.builder.Select("1").
		From(salesTable).
		Where(squirrel.Eq{"ts": ts, "channel_id": channelID, "reference": reference}).
		Prefix("SELECT EXISTS (").
		Suffix(")")
}

// List returns headers newest first.
func (r *SaleRepo) List(ctx context.Context, f sales.Filter) ([]sales.Sale, int64, error) {
	q := r.builder.Select(saleColumns...).From(salesTable)

	if f.ChannelID != nil {
		q = q.Where(squirrel.Eq{"channel_id": *f.ChannelID})
	}
	if f.State != "" {
		q = q.Where(squirrel.Eq{"state": f.State})
	}
	if f.Reference != "" {
		q = q.Where(squirrel.Eq{"reference": f.Reference})
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
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	sql, args, err := q.OrderBy("ts DESC", "created_at DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var list []sales.Sale
	if err := pgxscan.Select(ctx, querier, &list, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select sales: %w", err)
	}
	return list, total, nil
}
