package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/idempotency"
	"retailcore/internal/core/tx"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/stock"
	"retailcore/pkg/logger"
	"retailcore/pkg/metrics"
)

var tracer = otel.Tracer("retailcore/sales")

const (
	// DefaultObservation is written on movements of manually registered sales.
	DefaultObservation = "Venta manual"
	// DefaultVoidReason is used when a void request carries no reason.
	DefaultVoidReason = "Anulacion solicitada"
	// VoidReferencePrefix prefixes the reference of compensating movements.
	VoidReferencePrefix = "ANUL-"
)

// StockReader is the part of the stock query engine the workflow needs.
type StockReader interface {
	StockAsOf(ctx context.Context, skuIDs []id.ID, cutoff *time.Time) (map[id.ID]int64, error)
}

// Ledger is the part of the movement ledger the workflow needs.
type Ledger interface {
	AppendAll(ctx context.Context, movements []entity.Movement) (ledger.AppendResult, error)
}

// RegisterInput describes a sale to register.
type RegisterInput struct {
	// SaleID lets callers retry a registration: an existing sale with this id is
	// returned unchanged. A new id is generated when nil.
	SaleID *id.ID

	// Timestamp defaults to now; it is stored at whole-second precision.
	Timestamp *time.Time

	// Channel by id or, when ChannelID is nil, by code.
	ChannelID   *id.ID
	ChannelCode string

	Reference   string
	Season      catalog.SeasonPolicy
	Lines       []LineInput
	Observation string
}

// LineInput is one requested line. The SKU is given by id or, when SKUID is nil, by code.
type LineInput struct {
	SKUID     *id.ID
	SKUCode   string
	Quantity  int64
	UnitPrice types.Money
	// ListPrice defaults to the SKU's list price.
	ListPrice *types.Money
}

// Service runs the sale and voidance workflows.
type Service struct {
	repo      Repository
	catalog   catalog.Reader
	stock     StockReader
	ledger    Ledger
	txManager tx.Manager
	locker    stock.Locker
	now       func() time.Time
}

// NewService creates a sales service.
func NewService(
	repo Repository,
	catalogReader catalog.Reader,
	stockReader StockReader,
	ledgerWriter Ledger,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalogReader,
		stock:     stockReader,
		ledger:    ledgerWriter,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithLocker makes Register take per-SKU locks before its stock precheck.
func (s *Service) WithLocker(l stock.Locker) *Service {
	s.locker = l
	return s
}

// resolvedLine is a validated line with its SKU.
type resolvedLine struct {
	sku       *entity.SKU
	quantity  int64
	unitPrice types.Money
	listPrice types.Money
}

// Register creates a sale, its lines and one outgoing movement per line, after
// checking that stock covers every line. Nothing is written when any check fails.
func (s *Service) Register(ctx context.Context, in RegisterInput) (sale *Sale, err error) {
	ctx, span := tracer.Start(ctx, "sales.Register")
	defer func() { endSpan(span, err) }()

	defer func() {
		if err != nil {
			code := ""
			if appErr, ok := apperror.AsAppError(err); ok {
				code = appErr.Code
			}
			metrics.SalesRejected.WithLabelValues(metrics.Reason(code)).Inc()
		}
	}()

	ts := s.now()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}
	ts = ts.Truncate(time.Second)

	saleID := id.New()
	if in.SaleID != nil && !id.IsNil(*in.SaleID) {
		saleID = *in.SaleID
		existing, err := s.repo.GetByID(ctx, saleID)
		switch {
		case err == nil:
			logger.Info(ctx, "sale already registered", "sale_id", saleID)
			return s.withLines(ctx, existing)
		case !apperror.IsNotFound(err):
			return nil, err
		}
	}

	// 1. Channel and reference rule.
	channel, err := s.resolveChannel(ctx, in.ChannelID, in.ChannelCode)
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(in.Reference)
	if channel.RequiresReference && reference == "" {
		return nil, apperror.NewValidation("reference is required for this channel").
			WithDetail("field", "reference").
			WithDetail("channel", channel.Code)
	}

	// 2. Season.
	season, err := catalog.ResolveSeason(ctx, s.catalog, in.Season, ts)
	if err != nil {
		return nil, err
	}

	// 3. Lines.
	lines, err := s.resolveLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	sale = NewSale(saleID, ts, channel.ID)
	if reference != "" {
		sale.Reference = &reference
	}
	if season != nil {
		sale.SeasonID = &season.ID
	}
	sale.CreatedBy = appctx.GetUserID(ctx)
	for _, l := range lines {
		sale.AddLine(l.sku.ID, l.quantity, l.unitPrice, l.listPrice)
	}
	if err := sale.Validate(ctx); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.String("sale.channel", channel.Code),
		attribute.Int("sale.lines", len(sale.Lines)),
	)

	observation := strings.TrimSpace(in.Observation)
	if observation == "" {
		observation = DefaultObservation
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// 4. Duplicate header.
		if reference != "" {
			dup, err := s.repo.ExistsByNaturalKey(ctx, ts, channel.ID, reference)
			if err != nil {
				return fmt.Errorf("check duplicate sale: %w", err)
			}
			if dup {
				return apperror.NewDuplicateSale(ts.Format(time.RFC3339), channel.Code, reference)
			}
		}

		// 5. Stock precheck for all lines before any write.
		if err := s.precheck(ctx, ts, lines); err != nil {
			return err
		}

		// 6. Header, lines, movements, total.
		if err := s.repo.Create(ctx, sale); err != nil {
			return err
		}
		if err := s.repo.SaveLines(ctx, sale.ID, sale.Lines); err != nil {
			return fmt.Errorf("save sale lines: %w", err)
		}

		movements := make([]entity.Movement, len(sale.Lines))
		for i, line := range sale.Lines {
			movements[i] = entity.Movement{
				Timestamp:      sale.Timestamp,
				SKUID:          line.SKUID,
				TypeCode:       entity.MovementSale,
				Quantity:       line.Quantity,
				Sign:           entity.SignOut,
				ChannelID:      id.Ptr(sale.ChannelID),
				SaleID:         id.Ptr(sale.ID),
				SaleLineID:     id.Ptr(line.ID),
				Reference:      reference,
				Observation:    observation,
				IdempotencyKey: idempotency.SaleKey(sale.ID, line.ID),
			}
		}
		res, err := s.ledger.AppendAll(ctx, movements)
		if err != nil {
			return err
		}
		if res.AlreadyApplied > 0 {
			logger.Warn(ctx, "sale movements already applied",
				"sale_id", sale.ID,
				"already_applied", res.AlreadyApplied,
			)
		}

		return s.repo.UpdateTotal(ctx, sale.ID, sale.Total, s.now())
	})
	if err != nil {
		return nil, err
	}

	metrics.SalesRegistered.WithLabelValues(channel.Code).Inc()
	logger.Info(ctx, "sale registered",
		"sale_id", sale.ID,
		"channel", channel.Code,
		"reference", reference,
		"lines", len(sale.Lines),
		"total", sale.Total.StringFixed(types.MoneyScale),
	)
	return sale, nil
}

// Void reverses a sale: one compensating incoming movement per line, then the
// sale is marked VOID. Voiding a VOID sale is a no-op.
func (s *Service) Void(ctx context.Context, saleID id.ID, reason string) (err error) {
	ctx, span := tracer.Start(ctx, "sales.Void", trace.WithAttributes(
		attribute.String("sale.id", saleID.String()),
	))
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultVoidReason
	}
	userID := appctx.GetUserID(ctx)

	voided := false
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.IsVoid() {
			return nil
		}

		lines, err := s.repo.GetLines(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get sale lines: %w", err)
		}

		reference := VoidReferencePrefix + sale.ReferenceOr(sale.ID.String())
		movements := make([]entity.Movement, len(lines))
		for i, line := range lines {
			movements[i] = entity.Movement{
				Timestamp:      sale.Timestamp,
				SKUID:          line.SKUID,
				TypeCode:       entity.MovementVoid,
				Quantity:       line.Quantity,
				Sign:           entity.SignIn,
				ChannelID:      id.Ptr(sale.ChannelID),
				SaleID:         id.Ptr(sale.ID),
				SaleLineID:     id.Ptr(line.ID),
				Reference:      reference,
				Observation:    reason,
				IdempotencyKey: idempotency.VoidKey(sale.ID, line.ID),
			}
		}
		if _, err := s.ledger.AppendAll(ctx, movements); err != nil {
			return err
		}

		if err := s.repo.MarkVoid(ctx, saleID, userID, s.now(), reason); err != nil {
			return fmt.Errorf("mark sale void: %w", err)
		}
		voided = true
		return nil
	})
	if err != nil {
		return err
	}

	if voided {
		metrics.SalesVoided.Inc()
		logger.Info(ctx, "sale voided", "sale_id", saleID, "reason", reason)
	} else {
		logger.Debug(ctx, "sale already void", "sale_id", saleID)
	}
	return nil
}

// Get returns a sale with its lines.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return s.withLines(ctx, sale)
}

// List returns a page of sale headers.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[Sale], error) {
	filter.Page = filter.Page.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[Sale]{}, fmt.Errorf("list sales: %w", err)
	}
	return domain.NewListResult(items, total, filter.Page), nil
}

func (s *Service) withLines(ctx context.Context, sale *Sale) (*Sale, error) {
	lines, err := s.repo.GetLines(ctx, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	sale.Lines = lines
	return sale, nil
}

func (s *Service) resolveChannel(ctx context.Context, channelID *id.ID, code string) (*entity.Channel, error) {
	var (
		channel *entity.Channel
		err     error
	)
	switch {
	case channelID != nil && !id.IsNil(*channelID):
		channel, err = s.catalog.ChannelByID(ctx, *channelID)
	case strings.TrimSpace(code) != "":
		channel, err = s.catalog.ChannelByCode(ctx, entity.NormalizeCode(code))
	default:
		return nil, apperror.NewValidation("channel is required").WithDetail("field", "channel")
	}
	if err != nil {
		return nil, err
	}
	if !channel.Active {
		return nil, apperror.NewValidation("channel is not active").WithDetail("channel", channel.Code)
	}
	return channel, nil
}

func (s *Service) resolveLines(ctx context.Context, in []LineInput) ([]resolvedLine, error) {
	if len(in) == 0 {
		return nil, apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}

	out := make([]resolvedLine, 0, len(in))
	for i, l := range in {
		lineNo := i + 1

		var (
			sku *entity.SKU
			err error
		)
		switch {
		case l.SKUID != nil && !id.IsNil(*l.SKUID):
			sku, err = s.catalog.SKUByID(ctx, *l.SKUID)
		case strings.TrimSpace(l.SKUCode) != "":
			sku, err = s.catalog.SKUByCode(ctx, strings.TrimSpace(l.SKUCode))
		default:
			return nil, apperror.NewValidation("sku is required").
				WithDetail("field", "sku").
				WithDetail("lineNo", lineNo)
		}
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, appErr.WithDetail("lineNo", lineNo)
			}
			return nil, err
		}
		if !sku.Active {
			return nil, apperror.NewValidation("sku is not active").
				WithDetail("sku", sku.Code).
				WithDetail("lineNo", lineNo)
		}
		if l.Quantity <= 0 {
			return nil, apperror.NewValidation("quantity must be positive").
				WithDetail("field", "quantity").
				WithDetail("sku", sku.Code).
				WithDetail("lineNo", lineNo)
		}
		if l.UnitPrice.IsNegative() {
			return nil, apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "unitPrice").
				WithDetail("sku", sku.Code).
				WithDetail("lineNo", lineNo)
		}

		listPrice := sku.ListPrice
		if l.ListPrice != nil {
			if l.ListPrice.IsNegative() {
				return nil, apperror.NewValidation("list price must not be negative").
					WithDetail("field", "listPrice").
					WithDetail("sku", sku.Code).
					WithDetail("lineNo", lineNo)
			}
			listPrice = *l.ListPrice
		}

		out = append(out, resolvedLine{
			sku:       sku,
			quantity:  l.Quantity,
			unitPrice: l.UnitPrice,
			listPrice: listPrice,
		})
	}
	return out, nil
}

// precheck compares the requested quantity per SKU, summed over lines, with
// the stock available at the sale timestamp.
func (s *Service) precheck(ctx context.Context, ts time.Time, lines []resolvedLine) error {
	requested := make(map[id.ID]int64, len(lines))
	skus := make(map[id.ID]*entity.SKU, len(lines))
	order := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		if _, seen := requested[l.sku.ID]; !seen {
			order = append(order, l.sku.ID)
			skus[l.sku.ID] = l.sku
		}
		requested[l.sku.ID] += l.quantity
	}

	if s.locker != nil {
		if err := s.locker.LockSKUs(ctx, order); err != nil {
			return fmt.Errorf("lock skus: %w", err)
		}
	}

	levels, err := s.stock.StockAsOf(ctx, order, &ts)
	if err != nil {
		return err
	}

	for _, skuID := range order {
		available := stock.Available(levels, skuID)
		if available < requested[skuID] {
			return apperror.NewInsufficientStock(skuID.String(), skus[skuID].Code, requested[skuID], available)
		}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			span.SetAttributes(attribute.String("error.code", appErr.Code))
		}
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
