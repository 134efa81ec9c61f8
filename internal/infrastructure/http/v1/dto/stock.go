package dto

import (
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/domain/stock"
)

// StockLevel is the point-in-time stock of one SKU.
type StockLevel struct {
	SKUID    id.ID  `json:"skuId"`
	SKUCode  string `json:"sku,omitempty"`
	Quantity int64  `json:"quantity"`
}

// StockResponse answers GET /stock.
type StockResponse struct {
	Cutoff time.Time    `json:"cutoff"`
	Items  []StockLevel `json:"items"`
}

// NewStockResponse lists levels in request order; SKUs without movements report zero.
func NewStockResponse(cutoff time.Time, skuIDs []id.ID, levels map[id.ID]int64) StockResponse {
	resp := StockResponse{Cutoff: cutoff, Items: make([]StockLevel, 0, len(skuIDs))}
	seen := make(map[id.ID]struct{}, len(skuIDs))
	for _, skuID := range skuIDs {
		if _, dup := seen[skuID]; dup {
			continue
		}
		seen[skuID] = struct{}{}
		resp.Items = append(resp.Items, StockLevel{SKUID: skuID, Quantity: stock.Available(levels, skuID)})
	}
	return resp
}

// NewSnapshotResponse lists a full catalog snapshot.
func NewSnapshotResponse(cutoff time.Time, items []stock.SKUStock) StockResponse {
	resp := StockResponse{Cutoff: cutoff, Items: make([]StockLevel, len(items))}
	for i, it := range items {
		resp.Items[i] = StockLevel{SKUID: it.SKUID, SKUCode: it.SKUCode, Quantity: it.Quantity}
	}
	return resp
}

// MovementListQuery binds GET /stock/movements filters.
type MovementListQuery struct {
	SKUID    string     `form:"skuId"`
	SaleID   string     `form:"saleId"`
	TypeCode string     `form:"type"`
	From     *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	PageQuery
}


// AlertListResponse answers GET /stock/alerts.
type AlertListResponse struct {
	Cutoff time.Time     `json:"cutoff"`
	Items  []stock.Alert `json:"items"`
}

// ParameterRequest is the body of PUT /replenishment/:skuId.
type ParameterRequest struct {
	MinStock     int64 `json:"minStock"`
	LeadTimeDays int64 `json:"leadTimeDays"`
	SafetyStock  int64 `json:"safetyStock"`
}

// ToParameter builds the parameter for skuID.
func (r *ParameterRequest) ToParameter(skuID id.ID) stock.Parameter {
	return stock.Parameter{
		SKUID:        skuID,
		MinStock:     r.MinStock,
		LeadTimeDays: r.LeadTimeDays,
		SafetyStock:  r.SafetyStock,
	}
}
