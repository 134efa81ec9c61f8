package stock

import (
	"context"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
)

// DemandWindowDays is the trailing window used to estimate daily demand.
const DemandWindowDays = 28

// Parameter holds the replenishment settings of one SKU.
type Parameter struct {
	ID           id.ID     `db:"id" json:"id"`
	SKUID        id.ID     `db:"sku_id" json:"skuId"`
	MinStock     int64     `db:"min_stock" json:"minStock"`
	LeadTimeDays int64     `db:"lead_time_days" json:"leadTimeDays"`
	SafetyStock  int64     `db:"safety_stock" json:"safetyStock"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate implements entity.Validatable.
func (p *Parameter) Validate(ctx context.Context) error {
	if id.IsNil(p.SKUID) {
		return apperror.NewValidation("skuId is required").WithDetail("field", "skuId")
	}
	for field, v := range map[string]int64{
		"minStock":     p.MinStock,
		"leadTimeDays": p.LeadTimeDays,
		"safetyStock":  p.SafetyStock,
	} {
		if v < 0 {
			return apperror.NewValidation("value must not be negative").
				WithDetail("field", field).
				WithDetail("value", v)
		}
	}
	return nil
}

// SKUStock is the stock of one SKU in a catalog snapshot.
type SKUStock struct {
	SKUID    id.ID  `json:"skuId"`
	SKUCode  string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// Level is a replenishment traffic light.
type Level string

const (
	LevelRed    Level = "RED"
	LevelYellow Level = "YELLOW"
	LevelGreen  Level = "GREEN"
)

func (l Level) rank() int {
	switch l {
	case LevelRed:
		return 0
	case LevelYellow:
		return 1
	default:
		return 2
	}
}

// Alert is the replenishment status of one SKU at a cutoff.
type Alert struct {
	SKUID        id.ID  `json:"skuId"`
	SKUCode      string `json:"sku"`
	Stock        int64  `json:"stock"`
	MinStock     int64  `json:"minStock"`
	DailyDemand  int64  `json:"dailyDemand"`
	CoverageDays int64  `json:"coverageDays"`
	LeadTimeDays int64  `json:"leadTimeDays"`
	SafetyStock  int64  `json:"safetyStock"`
	ReorderPoint int64  `json:"reorderPoint"`
	Level        Level  `json:"level"`
}

// compareAlerts orders alerts by urgency, then by SKU code.
func compareAlerts(a, b Alert) int {
	if a.Level.rank() != b.Level.rank() {
		return a.Level.rank() - b.Level.rank()
	}
	switch {
	case a.SKUCode < b.SKUCode:
		return -1
	case a.SKUCode > b.SKUCode:
		return 1
	}
	return 0
}

// DailyDemand estimates units per day from units sold over windowDays.
// The floor is 1 so reorder arithmetic stays defined when nothing sold.
func DailyDemand(sold int64, windowDays int) int64 {
	if sold <= 0 || windowDays <= 0 {
		return 1
	}
	d := (sold + int64(windowDays) - 1) / int64(windowDays)
	if d < 1 {
		return 1
	}
	return d
}

// ReorderPoint is demand x lead time + safety stock.
func ReorderPoint(dailyDemand, leadTimeDays, safetyStock int64) int64 {
	return dailyDemand*leadTimeDays + safetyStock
}

// Classify returns the traffic light for a stock level.
func Classify(stock, minStock, reorderPoint int64) Level {
	switch {
	case stock <= minStock:
		return LevelRed
	case stock <= reorderPoint:
		return LevelYellow
	default:
		return LevelGreen
	}
}

// Coverage is the number of whole days the stock lasts at dailyDemand.
// Negative stock covers zero days.
func Coverage(stock, dailyDemand int64) int64 {
	if dailyDemand <= 0 || stock <= 0 {
		return 0
	}
	return stock / dailyDemand
}

// Available reads a SKU from a stock map, treating absent SKUs as zero.
func Available(levels map[id.ID]int64, skuID id.ID) int64 {
	return levels[skuID]
}
