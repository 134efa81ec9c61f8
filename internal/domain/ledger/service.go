package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain"
	"retailcore/internal/domain/catalog"
	"retailcore/pkg/logger"
	"retailcore/pkg/metrics"
)

// ErrAlreadyApplied signals that a movement with the same idempotency key was
// recorded earlier. Callers treat it as success.
var ErrAlreadyApplied = errors.New("ledger: movement already applied")

// IsApplied reports whether err means the movement is in the ledger, either
// written now (nil) or earlier (ErrAlreadyApplied).
func IsApplied(err error) bool {
	return err == nil || errors.Is(err, ErrAlreadyApplied)
}

// AppendResult summarizes a batch append.
type AppendResult struct {
	IDs            []id.ID // id of each movement; Nil where already applied
	Applied        int
	AlreadyApplied int
}

// Service validates and appends movements.
type Service struct {
	repo    Repository
	catalog catalog.Reader
	now     func() time.Time
}

// NewService creates a ledger service.
func NewService(repo Repository, catalogReader catalog.Reader) *Service {
	return &Service{
		repo:    repo,
		catalog: catalogReader,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append records one movement and returns its id, or ErrAlreadyApplied when its
// idempotency key is already present.
func (s *Service) Append(ctx context.Context, m entity.Movement) (id.ID, error) {
	if err := s.prepare(ctx, &m); err != nil {
		metrics.LedgerAppends.WithLabelValues(m.TypeCode, metrics.OutcomeRejected).Inc()
		return id.Nil(), err
	}

	applied, err := s.repo.Insert(ctx, &m)
	if err != nil {
		return id.Nil(), fmt.Errorf("append movement: %w", err)
	}
	if !applied {
		s.observe(&m, false)
		logger.Warn(ctx, "movement already applied",
			"idempotency_key", m.IdempotencyKey,
			"type", m.TypeCode,
			"sku_id", m.SKUID,
		)
		return id.Nil(), ErrAlreadyApplied
	}

	s.observe(&m, true)
	return m.ID, nil
}

// AppendAll records movements in order within the caller's unit of work.
// Already-applied movements are counted, not failed. Any invalid movement
// rejects the whole batch before anything is written.
func (s *Service) AppendAll(ctx context.Context, movements []entity.Movement) (AppendResult, error) {
	if len(movements) == 0 {
		return AppendResult{}, nil
	}

	prepared := make([]entity.Movement, len(movements))
	for i := range movements {
		prepared[i] = movements[i]
		if err := s.prepare(ctx, &prepared[i]); err != nil {
			metrics.LedgerAppends.WithLabelValues(prepared[i].TypeCode, metrics.OutcomeRejected).Inc()
			if appErr, ok := apperror.AsAppError(err); ok {
				return AppendResult{}, appErr.WithDetail("index", i)
			}
			return AppendResult{}, err
		}
	}

	applied, err := s.repo.InsertBatch(ctx, prepared)
	if err != nil {
		return AppendResult{}, fmt.Errorf("append movements: %w", err)
	}

	res := AppendResult{IDs: make([]id.ID, len(prepared))}
	for i := range prepared {
		s.observe(&prepared[i], applied[i])
		if applied[i] {
			res.IDs[i] = prepared[i].ID
			res.Applied++
			continue
		}
		res.AlreadyApplied++
		logger.Warn(ctx, "movement already applied",
			"idempotency_key", prepared[i].IdempotencyKey,
			"type", prepared[i].TypeCode,
			"sku_id", prepared[i].SKUID,
		)
	}
	return res, nil
}

// List returns a page of movements.
func (s *Service) List(ctx context.Context, filter MovementFilter) (domain.ListResult[entity.Movement], error) {
	filter.Page = filter.Page.Normalize()
	filter.TypeCode = entity.NormalizeCode(filter.TypeCode)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[entity.Movement]{}, fmt.Errorf("list movements: %w", err)
	}
	return domain.NewListResult(items, total, filter.Page), nil
}

// prepare resolves the movement type, checks the sign against it and fills
// system fields.
func (s *Service) prepare(ctx context.Context, m *entity.Movement) error {
	m.TypeCode = entity.NormalizeCode(m.TypeCode)
	if m.TypeCode == "" {
		return apperror.NewValidation("movement type is required").WithDetail("field", "movementType")
	}

	mt, err := s.catalog.MovementTypeByCode(ctx, m.TypeCode)
	if err != nil {
		return err
	}
	if !mt.Active {
		return apperror.NewValidation("movement type is not active").WithDetail("movementType", mt.Code)
	}
	m.TypeID = mt.ID

	if err := m.Validate(ctx); err != nil {
		return err
	}
	if !mt.Allows(m.Sign) {
		return apperror.NewValidation("sign not allowed for movement type").
			WithDetail("field", "sign").
			WithDetail("movementType", mt.Code).
			WithDetail("sign", int(m.Sign))
	}

	if id.IsNil(m.ID) {
		m.ID = id.New()
	}
	m.Timestamp = m.Timestamp.UTC().Truncate(time.Second)
	m.Reference = strings.TrimSpace(m.Reference)
	if m.UserID == "" {
		m.UserID = appctx.GetUserID(ctx)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	return nil
}

func (s *Service) observe(m *entity.Movement, applied bool) {
	if !applied {
		metrics.LedgerAppends.WithLabelValues(m.TypeCode, metrics.OutcomeAlreadyApplied).Inc()
		return
	}
	metrics.LedgerAppends.WithLabelValues(m.TypeCode, metrics.OutcomeApplied).Inc()
	direction := "in"
	if m.Sign == entity.SignOut {
		direction = "out"
	}
	metrics.LedgerUnits.WithLabelValues(direction).Add(float64(m.Quantity))
}
