// Package sales provides the sale document: registration gated by a stock
// precheck, and voidance by compensating movements.
package sales

import (
	"context"
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain"
)

// State is the lifecycle state of a sale.
type State string

const (
	StateActive State = "ACTIVE"
	StateVoid   State = "VOID"
)

// Sale is a sale header. Lines are owned by the sale and created with it.
type Sale struct {
	ID        id.ID     `db:"id" json:"id"`
	Timestamp time.Time `db:"ts" json:"timestamp"`
	ChannelID id.ID     `db:"channel_id" json:"channelId"`
	SeasonID  *id.ID    `db:"season_id" json:"seasonId,omitempty"`

	// Reference is the origin reference (ticket, order number). Nil when absent.
	Reference *string `db:"reference" json:"reference,omitempty"`

	State State       `db:"state" json:"state"`
	Total types.Money `db:"total" json:"total"`

	CreatedBy  string     `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
	VoidedBy   *string    `db:"voided_by" json:"voidedBy,omitempty"`
	VoidedAt   *time.Time `db:"voided_at" json:"voidedAt,omitempty"`
	VoidReason *string    `db:"void_reason" json:"voidReason,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one item of a sale.
type Line struct {
	ID        id.ID       `db:"id" json:"id"`
	SaleID    id.ID       `db:"sale_id" json:"saleId"`
	LineNo    int         `db:"line_no" json:"lineNo"`
	SKUID     id.ID       `db:"sku_id" json:"skuId"`
	Quantity  int64       `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	ListPrice types.Money `db:"list_price" json:"listPrice"`
	Importe   types.Money `db:"importe" json:"importe"`
}

// NewSale creates an ACTIVE sale header with a zero total.
func NewSale(saleID id.ID, ts time.Time, channelID id.ID) *Sale {
	now := time.Now().UTC()
	return &Sale{
		ID:        saleID,
		Timestamp: ts,
		ChannelID: channelID,
		State:     StateActive,
		Total:     types.Zero(),
		CreatedAt: now,
		UpdatedAt: now,
		Lines:     make([]Line, 0),
	}
}

// AddLine appends a line, computes its importe and recalculates the total.
// Line ids are derived from the sale id and line number.
func (s *Sale) AddLine(skuID id.ID, quantity int64, unitPrice, listPrice types.Money) Line {
	lineNo := len(s.Lines) + 1
	line := Line{
		ID:        id.Derive(s.ID, lineNo),
		SaleID:    s.ID,
		LineNo:    lineNo,
		SKUID:     skuID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		ListPrice: listPrice,
		Importe:   types.LineAmount(quantity, unitPrice),
	}
	s.Lines = append(s.Lines, line)
	s.recalculateTotal()
	return line
}

func (s *Sale) recalculateTotal() {
	amounts := make([]types.Money, len(s.Lines))
	for i, l := range s.Lines {
		amounts[i] = l.Importe
	}
	s.Total = types.Sum(amounts...)
}

// ReferenceOr returns the reference, or fallback when the sale has none.
func (s *Sale) ReferenceOr(fallback string) string {
	if s.Reference != nil && *s.Reference != "" {
		return *s.Reference
	}
	return fallback
}

// IsVoid reports whether the sale has been voided.
func (s *Sale) IsVoid() bool { return s.State == StateVoid }

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if id.IsNil(s.ChannelID) {
		return apperror.NewValidation("channel is required").WithDetail("field", "channelId")
	}
	if s.Timestamp.IsZero() {
		return apperror.NewValidation("timestamp is required").WithDetail("field", "timestamp")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, line := range s.Lines {
		if id.IsNil(line.SKUID) {
			return apperror.NewValidation("sku is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "quantity").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "unitPrice").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// Filter narrows a sale listing.
type Filter struct {
	ChannelID *id.ID
	State     State
	Reference string
	From      *time.Time // inclusive
	To        *time.Time // exclusive
	domain.Page
}
