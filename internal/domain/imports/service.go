package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/sales"
	"retailcore/pkg/logger"
	"retailcore/pkg/metrics"
)

var tracer = otel.Tracer("retailcore/imports")

// RoleAnalyst may validate batches but not persist them.
const RoleAnalyst = "ANALYST"

// SaleRegistrar runs the sale workflow for one group.
type SaleRegistrar interface {
	Register(ctx context.Context, in sales.RegisterInput) (*sales.Sale, error)
}

// Service imports sale rows.
type Service struct {
	sales   SaleRegistrar
	catalog catalog.Reader
	logs    BatchLogRepository
	now     func() time.Time
}

// NewService creates an import service.
func NewService(registrar SaleRegistrar, catalogReader catalog.Reader, logs BatchLogRepository) *Service {
	return &Service{
		sales:   registrar,
		catalog: catalogReader,
		logs:    logs,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// groupKey is the natural key of a sale header.
type groupKey struct {
	ts        time.Time
	channel   string
	reference string
}

type parsedRow struct {
	row  int
	line sales.LineInput
}

type group struct {
	key       groupKey
	channelID id.ID
	rows      []parsedRow
}

// collector accumulates row errors and the capped sample.
type collector struct {
	errs   []BatchError
	sample []string
	now    time.Time
}

func (c *collector) add(row int, field, message string) {
	if field == "" {
		field = FieldGeneral
	}
	c.errs = append(c.errs, BatchError{
		ID:        id.New(),
		RowNumber: row,
		Field:     field,
		Message:   message,
		CreatedAt: c.now,
	})
	if len(c.sample) < MaxSampleErrors {
		c.sample = append(c.sample, fmt.Sprintf("row %d: %s", row, message))
	}
}

// Import parses rows, groups them into sales and, unless DryRun is set,
// registers every group in its own unit of work. A bad row or a rejected group
// never fails the batch. An infrastructure failure stops the batch; the rows
// not imported are recorded as errors and the partial result is returned with
// the error.
func (s *Service) Import(ctx context.Context, rows []Row, opts Options) (result *Result, err error) {
	mode := "persist"
	if opts.DryRun {
		mode = "dry_run"
	}

	ctx, span := tracer.Start(ctx, "imports.Import")
	span.SetAttributes(
		attribute.Int("import.rows", len(rows)),
		attribute.Bool("import.dry_run", opts.DryRun),
	)
	started := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.ImportDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	}()

	if !opts.DryRun && appctx.HasRole(ctx, RoleAnalyst) {
		return nil, apperror.NewForbidden("analysts may only run validation imports")
	}

	// A fixed season must be valid for every group, so check it once.
	if seasonID, fixed := opts.Season.SeasonID(); fixed {
		season, err := s.catalog.SeasonByID(ctx, seasonID)
		if err != nil {
			return nil, err
		}
		if !season.Active {
			return nil, apperror.NewValidation("fixed season is not active").WithDetail("seasonId", seasonID)
		}
	}

	c := &collector{now: s.now()}
	groups, okRows := s.parse(ctx, rows, c)

	res := &Result{}
	if opts.DryRun {
		res.OKCount = okRows
		res.ErrorCount = len(c.errs)
		res.SampleErrors = c.sample
		s.observe(res, mode)
		logger.Info(ctx, "import validated",
			"rows", len(rows),
			"ok", res.OKCount,
			"errors", res.ErrorCount,
			"groups", len(groups),
		)
		return res, nil
	}

	batch := &BatchLog{
		ID:        id.New(),
		Kind:      KindSales,
		FileName:  strings.TrimSpace(opts.FileName),
		Note:      strings.TrimSpace(opts.Note),
		UserID:    appctx.GetUserID(ctx),
		CreatedAt: s.now(),
	}
	if err := s.logs.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch log: %w", err)
	}
	span.SetAttributes(attribute.String("import.batch_id", batch.ID.String()))

	observation := Observation(batch.FileName, batch.Note)
	for gi, g := range groups {
		in := sales.RegisterInput{
			Timestamp:   &g.key.ts,
			ChannelID:   &g.channelID,
			Reference:   g.key.reference,
			Season:      opts.Season,
			Observation: observation,
			Lines:       make([]sales.LineInput, len(g.rows)),
		}
		for i, r := range g.rows {
			in.Lines[i] = r.line
		}

		_, err := s.sales.Register(ctx, in)
		switch {
		case err == nil:
			res.SalesCreated++
			res.OKCount += len(g.rows)
		case apperror.IsDuplicateSale(err):
			res.DuplicateCount += len(g.rows)
			logger.Warn(ctx, "duplicate sale header skipped",
				"batch_id", batch.ID,
				"timestamp", g.key.ts,
				"channel", g.key.channel,
				"reference", g.key.reference,
			)
		default:
			appErr, ok := apperror.AsAppError(err)
			if !ok || appErr.HTTPStatus >= 500 {
				return s.abort(ctx, batch, res, c, groups[gi:], mode,
					fmt.Errorf("import group at row %d: %w", g.rows[0].row, err))
			}
			field := FieldGeneral
			if f, ok := appErr.Details["field"].(string); ok {
				field = f
			}
			for _, r := range g.rows {
				c.add(r.row, field, appErr.Message)
			}
		}
	}

	res.ErrorCount = len(c.errs)
	res.SampleErrors = c.sample
	res.BatchID = &batch.ID
	if err := s.finish(ctx, batch, res, c); err != nil {
		return nil, err
	}

	s.observe(res, mode)
	logger.Info(ctx, "import finished",
		"batch_id", batch.ID,
		"file", batch.FileName,
		"ok", res.OKCount,
		"errors", res.ErrorCount,
		"duplicates", res.DuplicateCount,
		"sales", res.SalesCreated,
	)
	return res, nil
}

// GetBatch returns a batch log.
func (s *Service) GetBatch(ctx context.Context, batchID id.ID) (*BatchLog, error) {
	return s.logs.GetByID(ctx, batchID)
}

// ListBatches returns a page of batch logs, newest first.
func (s *Service) ListBatches(ctx context.Context, page domain.Page) (domain.ListResult[BatchLog], error) {
	page = page.Normalize()
	items, total, err := s.logs.List(ctx, page)
	if err != nil {
		return domain.ListResult[BatchLog]{}, fmt.Errorf("list batches: %w", err)
	}
	return domain.NewListResult(items, total, page), nil
}

// ListBatchErrors returns a page of a batch's row errors ordered by row.
func (s *Service) ListBatchErrors(ctx context.Context, batchID id.ID, page domain.Page) (domain.ListResult[BatchError], error) {
	if _, err := s.logs.GetByID(ctx, batchID); err != nil {
		return domain.ListResult[BatchError]{}, err
	}
	page = page.Normalize()
	items, total, err := s.logs.ListErrors(ctx, batchID, page)
	if err != nil {
		return domain.ListResult[BatchError]{}, fmt.Errorf("list batch errors: %w", err)
	}
	return domain.NewListResult(items, total, page), nil
}

// Observation is the text written on movements of imported sales.
func Observation(fileName, note string) string {
	obs := "Importacion Excel: " + strings.TrimSpace(fileName)
	if note = strings.TrimSpace(note); note != "" {
		obs += " | " + note
	}
	return obs
}

// parse validates every row and groups the valid ones in first-seen order.
func (s *Service) parse(ctx context.Context, rows []Row, c *collector) ([]*group, int) {
	channels := map[string]*entity.Channel{}
	skus := map[string]*entity.SKU{}

	var (
		groups []*group
		index  = map[groupKey]*group{}
		ok     int
	)
	for i, r := range rows {
		rowNo := i + 1

		if r.Timestamp == nil || r.Timestamp.IsZero() {
			c.add(rowNo, "timestamp", "timestamp is required")
			continue
		}
		channelCode := entity.NormalizeCode(r.ChannelCode)
		if channelCode == "" {
			c.add(rowNo, "channel", "channel is required")
			continue
		}
		skuCode := strings.TrimSpace(r.SKUCode)
		if skuCode == "" {
			c.add(rowNo, "sku", "sku is required")
			continue
		}
		if r.Quantity == nil || *r.Quantity <= 0 {
			c.add(rowNo, "quantity", "quantity must be positive")
			continue
		}
		if r.UnitPrice == nil || r.UnitPrice.IsNegative() {
			c.add(rowNo, "unitPrice", "unit price is required and must not be negative")
			continue
		}
		if r.ListPrice != nil && r.ListPrice.IsNegative() {
			c.add(rowNo, "listPrice", "list price must not be negative")
			continue
		}

		channel, found := channels[channelCode]
		if !found {
			ch, err := s.catalog.ChannelByCode(ctx, channelCode)
			if err != nil && !apperror.IsNotFound(err) {
				c.add(rowNo, "channel", err.Error())
				continue
			}
			channel = ch
			channels[channelCode] = ch
		}
		if channel == nil || !channel.Active {
			c.add(rowNo, "channel", "unknown channel: "+channelCode)
			continue
		}

		reference := strings.TrimSpace(r.Reference)
		if channel.RequiresReference && reference == "" {
			c.add(rowNo, "reference", "reference is required for channel "+channel.Code)
			continue
		}

		sku, found := skus[skuCode]
		if !found {
			v, err := s.catalog.SKUByCode(ctx, skuCode)
			if err != nil && !apperror.IsNotFound(err) {
				c.add(rowNo, "sku", err.Error())
				continue
			}
			sku = v
			skus[skuCode] = v
		}
		if sku == nil || !sku.Active {
			c.add(rowNo, "sku", "unknown sku: "+skuCode)
			continue
		}

		key := groupKey{
			ts:        r.Timestamp.UTC().Truncate(time.Second),
			channel:   channel.Code,
			reference: reference,
		}
		g, found := index[key]
		if !found {
			g = &group{key: key, channelID: channel.ID}
			index[key] = g
			groups = append(groups, g)
		}
		skuID := sku.ID
		g.rows = append(g.rows, parsedRow{
			row: rowNo,
			line: sales.LineInput{
				SKUID:     &skuID,
				Quantity:  *r.Quantity,
				UnitPrice: *r.UnitPrice,
				ListPrice: r.ListPrice,
			},
		})
		ok++
	}
	return groups, ok
}

func (s *Service) finish(ctx context.Context, batch *BatchLog, res *Result, c *collector) error {
	batch.OKCount = res.OKCount
	batch.ErrorCount = len(c.errs)
	batch.DuplicateCount = res.DuplicateCount
	batch.SalesCreated = res.SalesCreated
	for i := range c.errs {
		c.errs[i].BatchID = batch.ID
	}
	if err := s.logs.Finish(ctx, batch, c.errs); err != nil {
		logger.Error(ctx, "failed to close batch log", "batch_id", batch.ID, "error", err)
		return fmt.Errorf("finish batch log: %w", err)
	}
	return nil
}

// abort records the rows of the groups left unprocessed, closes the batch log
// and returns the partial result with cause.
func (s *Service) abort(ctx context.Context, batch *BatchLog, res *Result, c *collector, pending []*group, mode string, cause error) (*Result, error) {
	for _, g := range pending {
		for _, r := range g.rows {
			c.add(r.row, FieldGeneral, "not imported: the batch stopped on an internal error")
		}
	}
	res.ErrorCount = len(c.errs)
	res.SampleErrors = c.sample
	res.BatchID = &batch.ID

	err := cause
	if finishErr := s.finish(ctx, batch, res, c); finishErr != nil {
		err = errors.Join(cause, finishErr)
	}
	s.observe(res, mode)
	logger.Error(ctx, "import aborted",
		"batch_id", batch.ID,
		"ok", res.OKCount,
		"errors", res.ErrorCount,
		"error", cause,
	)
	return res, err
}

func (s *Service) observe(res *Result, mode string) {
	metrics.ImportRows.WithLabelValues("ok", mode).Add(float64(res.OKCount))
	metrics.ImportRows.WithLabelValues("error", mode).Add(float64(res.ErrorCount))
	metrics.ImportRows.WithLabelValues("duplicate", mode).Add(float64(res.DuplicateCount))
}
