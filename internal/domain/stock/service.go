package stock

import (
	"context"
	"fmt"
	"slices"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/catalog"
	"retailcore/pkg/logger"
	"retailcore/pkg/metrics"
)

// Service is the stock query engine.
type Service struct {
	repo    Repository
	params  ParameterRepository
	catalog catalog.Reader
	now     func() time.Time
}

// NewService creates a stock query service.
func NewService(repo Repository, params ParameterRepository, catalogReader catalog.Reader) *Service {
	return &Service{
		repo:    repo,
		params:  params,
		catalog: catalogReader,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Cutoff normalizes an optional cutoff: nil means now, and timestamps are
// compared at whole-second precision.
func (s *Service) Cutoff(cutoff *time.Time) time.Time {
	if cutoff == nil || cutoff.IsZero() {
		return s.now().Truncate(time.Second)
	}
	return cutoff.UTC().Truncate(time.Second)
}

// StockAsOf returns sum(sign*quantity) per SKU over movements up to cutoff.
// SKUs without movements are absent; read them with Available.
func (s *Service) StockAsOf(ctx context.Context, skuIDs []id.ID, cutoff *time.Time) (map[id.ID]int64, error) {
	ids := uniqueIDs(skuIDs)
	if len(ids) == 0 {
		return map[id.ID]int64{}, nil
	}
	levels, err := s.repo.SumSigned(ctx, ids, s.Cutoff(cutoff))
	if err != nil {
		return nil, fmt.Errorf("stock as of: %w", err)
	}
	return levels, nil
}

// Snapshot returns the stock at cutoff of every active SKU, ordered by code.
// Active SKUs without movements report zero.
func (s *Service) Snapshot(ctx context.Context, cutoff *time.Time) ([]SKUStock, error) {
	skus, err := s.catalog.ActiveSKUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active skus: %w", err)
	}

	skuIDs := make([]id.ID, len(skus))
	for i, sku := range skus {
		skuIDs[i] = sku.ID
	}
	levels, err := s.StockAsOf(ctx, skuIDs, cutoff)
	if err != nil {
		return nil, err
	}

	out := make([]SKUStock, len(skus))
	for i, sku := range skus {
		out[i] = SKUStock{SKUID: sku.ID, SKUCode: sku.Code, Quantity: Available(levels, sku.ID)}
	}
	return out, nil
}

// DemandInWindow returns units sold (sign -1) per SKU in [from, to).
func (s *Service) DemandInWindow(ctx context.Context, skuIDs []id.ID, from, to time.Time) (map[id.ID]int64, error) {
	if to.Before(from) {
		return nil, apperror.NewValidation("window end precedes window start").
			WithDetail("from", from).
			WithDetail("to", to)
	}
	ids := uniqueIDs(skuIDs)
	if len(ids) == 0 {
		return map[id.ID]int64{}, nil
	}
	sold, err := s.repo.SumOutflow(ctx, ids, from.UTC().Truncate(time.Second), to.UTC().Truncate(time.Second))
	if err != nil {
		return nil, fmt.Errorf("demand in window: %w", err)
	}
	return sold, nil
}

// Alerts evaluates every SKU that has replenishment parameters at cutoff.
// Results are ordered RED, YELLOW, GREEN and by SKU code within a level.
func (s *Service) Alerts(ctx context.Context, cutoff *time.Time) ([]Alert, error) {
	params, err := s.params.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list replenishment parameters: %w", err)
	}
	if len(params) == 0 {
		return []Alert{}, nil
	}

	at := s.Cutoff(cutoff)
	skuIDs := make([]id.ID, len(params))
	for i, p := range params {
		skuIDs[i] = p.SKUID
	}

	levels, err := s.repo.SumSigned(ctx, skuIDs, at)
	if err != nil {
		return nil, fmt.Errorf("stock for alerts: %w", err)
	}
	// The trailing window ends at the cutoff itself.
	sold, err := s.DemandInWindow(ctx, skuIDs, at.AddDate(0, 0, -DemandWindowDays), at.Add(time.Second))
	if err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(params))
	counts := map[Level]int{}
	for _, p := range params {
		code := p.SKUID.String()
		if sku, err := s.catalog.SKUByID(ctx, p.SKUID); err == nil {
			code = sku.Code
		} else if !apperror.IsNotFound(err) {
			return nil, err
		}

		stockNow := Available(levels, p.SKUID)
		demand := DailyDemand(sold[p.SKUID], DemandWindowDays)
		rop := ReorderPoint(demand, p.LeadTimeDays, p.SafetyStock)
		a := Alert{
			SKUID:        p.SKUID,
			SKUCode:      code,
			Stock:        stockNow,
			MinStock:     p.MinStock,
			DailyDemand:  demand,
			CoverageDays: Coverage(stockNow, demand),
			LeadTimeDays: p.LeadTimeDays,
			SafetyStock:  p.SafetyStock,
			ReorderPoint: rop,
			Level:        Classify(stockNow, p.MinStock, rop),
		}
		counts[a.Level]++
		alerts = append(alerts, a)
	}

	slices.SortFunc(alerts, compareAlerts)
	for _, l := range []Level{LevelRed, LevelYellow, LevelGreen} {
		metrics.StockAlerts.WithLabelValues(string(l)).Set(float64(counts[l]))
	}
	return alerts, nil
}

// SaveParameter creates or replaces the replenishment parameter of a SKU.
func (s *Service) SaveParameter(ctx context.Context, p Parameter) (*Parameter, error) {
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if _, err := s.catalog.SKUByID(ctx, p.SKUID); err != nil {
		return nil, err
	}

	existing, err := s.params.GetBySKU(ctx, p.SKUID)
	switch {
	case err == nil:
		p.ID = existing.ID
	case apperror.IsNotFound(err):
		p.ID = id.New()
	default:
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.params.Save(ctx, &p); err != nil {
		return nil, fmt.Errorf("save replenishment parameter: %w", err)
	}
	logger.Info(ctx, "replenishment parameter saved",
		"sku_id", p.SKUID,
		"min_stock", p.MinStock,
		"lead_time_days", p.LeadTimeDays,
		"safety_stock", p.SafetyStock,
	)
	return &p, nil
}

// GetParameter returns the replenishment parameter of a SKU.
func (s *Service) GetParameter(ctx context.Context, skuID id.ID) (*Parameter, error) {
	return s.params.GetBySKU(ctx, skuID)
}

// ListParameters returns every replenishment parameter.
func (s *Service) ListParameters(ctx context.Context) ([]Parameter, error) {
	return s.params.List(ctx)
}

// DeleteParameter removes the replenishment parameter of a SKU.
func (s *Service) DeleteParameter(ctx context.Context, skuID id.ID) error {
	if err := s.params.Delete(ctx, skuID); err != nil {
		return err
	}
	logger.Info(ctx, "replenishment parameter deleted", "sku_id", skuID)
	return nil
}

func uniqueIDs(ids []id.ID) []id.ID {
	seen := make(map[id.ID]struct{}, len(ids))
	out := make([]id.ID, 0, len(ids))
	for _, v := range ids {
		if id.IsNil(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
