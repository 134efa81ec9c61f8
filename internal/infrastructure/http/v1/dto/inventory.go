package dto

import (
	"time"

	"retailcore/internal/core/entity"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/inventory"
)

// StockFactRequest is the body of POST /inventory/initial and /inventory/receipts.
type StockFactRequest struct {
	SKUID       *id.ID     `json:"skuId,omitempty"`
	SKUCode     string     `json:"sku,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Quantity    int64      `json:"quantity"`
	Reference   string     `json:"reference,omitempty"`
	Observation string     `json:"observation,omitempty"`
}

// ToInput converts the request.
func (r *StockFactRequest) ToInput() inventory.Input {
	return inventory.Input{
		SKUID:       r.SKUID,
		SKUCode:     r.SKUCode,
		Timestamp:   r.Timestamp,
		Quantity:    r.Quantity,
		Reference:   r.Reference,
		Observation: r.Observation,
	}
}

// AdjustmentRequest is the body of POST /inventory/adjustments.
type AdjustmentRequest struct {
	StockFactRequest
	Sign int `json:"sign" binding:"required,oneof=1 -1"`
}

// ToInput converts the request.
func (r *AdjustmentRequest) ToInput() inventory.AdjustmentInput {
	return inventory.AdjustmentInput{
		Input: r.StockFactRequest.ToInput(),
		Sign:  entity.Sign(r.Sign),
	}
}
