// Package import_repo provides the PostgreSQL store for import batch logs.
// The row errors of a batch are kept as one JSON document on the batch row,
// zstd-compressed when large.
package import_repo

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/imports"
	"retailcore/internal/infrastructure/storage/postgres"
)

const batchesTable = "import_batches"

var batchColumns = []string{
	"id", "kind", "file_name", "note", "user_id", "created_at",
	"ok_count", "error_count", "duplicate_count", "sales_created",
}

// BatchLogRepo implements imports.BatchLogRepository.
type BatchLogRepo struct {
	txm     *postgres.TxManager
	codec   *postgres.PayloadCodec
	builder squirrel.StatementBuilderType
}

var _ imports.BatchLogRepository = (*BatchLogRepo)(nil)

// NewBatchLogRepo creates a new batch log repository.
func NewBatchLogRepo(txm *postgres.TxManager, codec *postgres.PayloadCodec) *BatchLogRepo {
	return &BatchLogRepo{
		txm:     txm,
		codec:   codec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the batch header with zero counts.
func (r *BatchLogRepo) Create(ctx context.Context, log *imports.BatchLog) error {
	sql, args, err := r.builder.Insert(batchesTable).
		Columns(batchColumns...).
		Values(
			log.ID, log.Kind, log.FileName, log.Note, log.UserID, log.CreatedAt,
			log.OKCount, log.ErrorCount, log.DuplicateCount, log.SalesCreated,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// Finish stores the final counts and the encoded error list.
func (r *BatchLogRepo) Finish(ctx context.Context, log *imports.BatchLog, errs []imports.BatchError) error {
	if errs == nil {
		errs = []imports.BatchError{}
	}
	payload, algo, err := r.codec.Encode(errs)
	if err != nil {
		return fmt.Errorf("encode batch errors: %w", err)
	}

	sql, args, err := r.builder.Update(batchesTable).
		SetMap(map[string]any{
			"ok_count":           log.OKCount,
			"error_count":        log.ErrorCount,
			"duplicate_count":    log.DuplicateCount,
			"sales_created":      log.SalesCreated,
			"errors_payload":     payload,
			"errors_compression": algo,
		}).
		Where(squirrel.Eq{"id": log.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", log.ID)
	}
	return nil
}

// GetByID returns the batch header or NotFound.
func (r *BatchLogRepo) GetByID(ctx context.Context, batchID id.ID) (*imports.BatchLog, error) {
	sql, args, err := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var log imports.BatchLog
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &log, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &log, nil
}

// List returns batch headers newest first.
func (r *BatchLogRepo) List(ctx context.Context, p domain.Page) ([]imports.BatchLog, int64, error) {
	querier := r.txm.GetQuerier(ctx)

	var total int64
	if err := querier.QueryRow(ctx, "SELECT COUNT(*) FROM "+batchesTable).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	sql, args, err := r.builder.Select(batchColumns...).
		From(batchesTable).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var logs []imports.BatchLog
	if err := pgxscan.Select(ctx, querier, &logs, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select batches: %w", err)
	}
	return logs, total, nil
}

// ListErrors decodes the stored error list and returns one page of it by row number.
func (r *BatchLogRepo) ListErrors(ctx context.Context, batchID id.ID, p domain.Page) ([]imports.BatchError, int64, error) {
	var (
		payload []byte
		algo    *string
	)
	err := r.txm.GetQuerier(ctx).QueryRow(ctx,
		"SELECT errors_payload, errors_compression FROM "+batchesTable+" WHERE id = $1", batchID,
	).Scan(&payload, &algo)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, 0, apperror.NewNotFound("batch", batchID)
		}
		return nil, 0, fmt.Errorf("get batch errors: %w", err)
	}

	compression := postgres.CompressionNone
	if algo != nil {
		compression = postgres.CompressionAlgo(*algo)
	}

	var all []imports.BatchError
	if err := r.codec.Decode(payload, compression, &all); err != nil {
		return nil, 0, err
	}
	slices.SortStableFunc(all, func(a, b imports.BatchError) int { return a.RowNumber - b.RowNumber })

	total := int64(len(all))
	if p.Offset >= len(all) {
		return []imports.BatchError{}, total, nil
	}
	end := min(p.Offset+p.Limit, len(all))
	return all[p.Offset:end], total, nil
}
