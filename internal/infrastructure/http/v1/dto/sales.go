package dto

import (
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/catalog"
	"retailcore/internal/domain/sales"
)

// --- Request DTOs ---

// RegisterSaleRequest is the body of POST /sales.
type RegisterSaleRequest struct {
	SaleID      *id.ID            `json:"saleId,omitempty"`
	Timestamp   *time.Time        `json:"timestamp,omitempty"`
	ChannelID   *id.ID            `json:"channelId,omitempty"`
	ChannelCode string            `json:"channel,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	SeasonMode  string            `json:"seasonMode,omitempty"`
	SeasonID    *id.ID            `json:"seasonId,omitempty"`
	Observation string            `json:"observation,omitempty"`
	Lines       []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SaleLineRequest is one requested line.
type SaleLineRequest struct {
	SKUID     *id.ID       `json:"skuId,omitempty"`
	SKUCode   string       `json:"sku,omitempty"`
	Quantity  int64        `json:"quantity"`
	UnitPrice types.Money  `json:"unitPrice"`
	ListPrice *types.Money `json:"listPrice,omitempty"`
}

// ToInput converts the request to workflow input.
func (r *RegisterSaleRequest) ToInput() (sales.RegisterInput, error) {
	season, err := catalog.ParseSeasonPolicy(r.SeasonMode, r.SeasonID)
	if err != nil {
		return sales.RegisterInput{}, err
	}

	lines := make([]sales.LineInput, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = sales.LineInput{
			SKUID:     l.SKUID,
			SKUCode:   l.SKUCode,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			ListPrice: l.ListPrice,
		}
	}

	return sales.RegisterInput{
		SaleID:      r.SaleID,
		Timestamp:   r.Timestamp,
		ChannelID:   r.ChannelID,
		ChannelCode: r.ChannelCode,
		Reference:   r.Reference,
		Season:      season,
		Lines:       lines,
		Observation: r.Observation,
	}, nil
}

// VoidSaleRequest is the optional body of POST /sales/:id/void.
type VoidSaleRequest struct {
	Reason string `json:"reason"`
}

// SaleListQuery binds GET /sales filters.
type SaleListQuery struct {
	ChannelID string     `form:"channelId"`
	State     string     `form:"state" binding:"omitempty,oneof=ACTIVE VOID"`
	Reference string     `form:"reference"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	PageQuery
}


