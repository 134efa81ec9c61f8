// Package inventory records stock facts that do not come from sales:
// opening balances, receipts and manual adjustments.
package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/core/idempotency"
	"retailcore/internal/core/tx"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/stock"
	"retailcore/pkg/logger"
)

// Default observations per operation.
const (
	ObservationInitialStock = "Stock inicial"
	ObservationReceipt      = "Ingreso de inventario"
	ObservationAdjustment   = "Ajuste de inventario"
)

// MovementAppender appends one movement to the ledger.
type MovementAppender interface {
	Append(ctx context.Context, m entity.Movement) (id.ID, error)
}

// StockReader reads point-in-time stock.
type StockReader interface {
	StockAsOf(ctx context.Context, skuIDs []id.ID, cutoff *time.Time) (map[id.ID]int64, error)
}

// Input describes one stock fact. The SKU is given by id or, when SKUID is nil, by code.
type Input struct {
	SKUID       *id.ID
	SKUCode     string
	Timestamp   *time.Time
	Quantity    int64
	Reference   string
	Observation string
}

// AdjustmentInput is an Input with an explicit direction.
type AdjustmentInput struct {
	Input
	Sign entity.Sign
}

// Result reports the movement written, or that an identical one already existed.
type Result struct {
	MovementID id.ID  `json:"movementId,omitempty"`
	Applied    bool   `json:"applied"`
	Key        string `json:"idempotencyKey"`
}

// Service records direct stock movements.
type Service struct {
	ledger    MovementAppender
	stock     StockReader
	catalog   catalog.Reader
	txManager tx.Manager
	locker    stock.Locker
	now       func() time.Time
}

// NewService creates an inventory service.
func NewService(l MovementAppender, s StockReader, c catalog.Reader, txm tx.Manager) *Service {
	return &Service{
		ledger:    l,
		stock:     s,
		catalog:   c,
		txManager: txm,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithLocker makes negative adjustments lock the SKU before the stock check.
func (s *Service) WithLocker(l stock.Locker) *Service {
	s.locker = l
	return s
}

// RegisterInitialStock records an opening balance.
func (s *Service) RegisterInitialStock(ctx context.Context, in Input) (Result, error) {
	return s.record(ctx, in, entity.MovementInitialStock, entity.SignIn, ObservationInitialStock)
}

// RegisterReceipt records incoming goods.
func (s *Service) RegisterReceipt(ctx context.Context, in Input) (Result, error) {
	return s.record(ctx, in, entity.MovementReceipt, entity.SignIn, ObservationReceipt)
}

// RegisterAdjustment records a manual correction in either direction.
// A negative adjustment may not take stock below zero at its timestamp.
func (s *Service) RegisterAdjustment(ctx context.Context, in AdjustmentInput) (Result, error) {
	if !in.Sign.Valid() {
		return Result{}, apperror.NewValidation("sign must be 1 or -1").WithDetail("field", "sign")
	}
	return s.record(ctx, in.Input, entity.MovementAdjustment, in.Sign, ObservationAdjustment)
}

func (s *Service) record(ctx context.Context, in Input, typeCode string, sign entity.Sign, defaultObs string) (Result, error) {
	sku, err := s.resolveSKU(ctx, in)
	if err != nil {
		return Result{}, err
	}
	if in.Quantity <= 0 {
		return Result{}, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("sku", sku.Code)
	}

	ts := s.now()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		ts = in.Timestamp.UTC()
	}
	ts = ts.Truncate(time.Second)

	reference := strings.TrimSpace(in.Reference)
	observation := strings.TrimSpace(in.Observation)
	if observation == "" {
		observation = defaultObs
	}

	m := entity.Movement{
		Timestamp:      ts,
		SKUID:          sku.ID,
		TypeCode:       typeCode,
		Quantity:       in.Quantity,
		Sign:           sign,
		Reference:      reference,
		Observation:    observation,
		IdempotencyKey: idempotency.AdjustmentKey(sku.ID, ts, typeCode, reference),
	}

	res := Result{Key: m.IdempotencyKey}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if sign == entity.SignOut {
			if err := s.checkStock(ctx, sku, ts, in.Quantity); err != nil {
				return err
			}
		}
		movementID, err := s.ledger.Append(ctx, m)
		switch {
		case err == nil:
			res.MovementID = movementID
			res.Applied = true
		case errors.Is(err, ledger.ErrAlreadyApplied):
			res.Applied = false
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Applied {
		logger.Info(ctx, "stock movement recorded",
			"type", typeCode,
			"sku", sku.Code,
			"quantity", in.Quantity,
			"sign", int(sign),
			"reference", reference,
		)
	}
	return res, nil
}

func (s *Service) checkStock(ctx context.Context, sku *entity.SKU, ts time.Time, quantity int64) error {
	if s.locker != nil {
		if err := s.locker.LockSKUs(ctx, []id.ID{sku.ID}); err != nil {
			return err
		}
	}
	levels, err := s.stock.StockAsOf(ctx, []id.ID{sku.ID}, &ts)
	if err != nil {
		return err
	}
	if available := stock.Available(levels, sku.ID); available < quantity {
		return apperror.NewInsufficientStock(sku.ID.String(), sku.Code, quantity, available)
	}
	return nil
}

func (s *Service) resolveSKU(ctx context.Context, in Input) (*entity.SKU, error) {
	var (
		sku *entity.SKU
		err error
	)
	switch {
	case in.SKUID != nil && !id.IsNil(*in.SKUID):
		sku, err = s.catalog.SKUByID(ctx, *in.SKUID)
	case strings.TrimSpace(in.SKUCode) != "":
		sku, err = s.catalog.SKUByCode(ctx, strings.TrimSpace(in.SKUCode))
	default:
		return nil, apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if err != nil {
		return nil, err
	}
	if !sku.Active {
		return nil, apperror.NewValidation("sku is not active").WithDetail("sku", sku.Code)
	}
	return sku, nil
}
