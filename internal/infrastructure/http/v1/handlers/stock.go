package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/domain/ledger"
	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// StockHandler serves stock levels, the movement history and alerts.
type StockHandler struct {
	*BaseHandler
	stock  *stock.Service
	ledger *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, stockService *stock.Service, ledgerService *ledger.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, stock: stockService, ledger: ledgerService}
}

// parseCutoff reads the optional cutoff query parameter (RFC 3339).
func (h *StockHandler) parseCutoff(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("cutoff")
	if raw == "" {
		return nil, true
	}
	cutoff, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid cutoff, expected RFC 3339").WithDetail("field", "cutoff"))
		return nil, false
	}
	return &cutoff, true
}

// GetStock handles GET /stock?skuId=...&skuId=...&cutoff=...
// Without skuId it returns every active SKU.
func (h *StockHandler) GetStock(c *gin.Context) {
	cutoff, ok := h.parseCutoff(c)
	if !ok {
		return
	}

	raw := c.QueryArray("skuId")
	if len(raw) == 0 {
		items, err := h.stock.Snapshot(c.Request.Context(), cutoff)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.NewSnapshotResponse(h.stock.Cutoff(cutoff), items))
		return
	}

	skuIDs := make([]id.ID, 0, len(raw))
	for _, s := range raw {
		parsed, err := id.Parse(s)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid skuId format").WithDetail("value", s))
			return
		}
		skuIDs = append(skuIDs, parsed)
	}

	levels, err := h.stock.StockAsOf(c.Request.Context(), skuIDs, cutoff)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewStockResponse(h.stock.Cutoff(cutoff), skuIDs, levels))
}

// GetMovements handles GET /stock/movements
func (h *StockHandler) GetMovements(c *gin.Context) {
	var q dto.MovementListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	skuID, ok := h.QueryID(c, "skuId", q.SKUID)
	if !ok {
		return
	}
	saleID, ok := h.QueryID(c, "saleId", q.SaleID)
	if !ok {
		return
	}

	result, err := h.ledger.List(c.Request.Context(), ledger.MovementFilter{
		SKUID:    skuID,
		SaleID:   saleID,
		TypeCode: q.TypeCode,
		From:     q.From,
		To:       q.To,
		Page:     q.Page(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetAlerts handles GET /stock/alerts
func (h *StockHandler) GetAlerts(c *gin.Context) {
	cutoff, ok := h.parseCutoff(c)
	if !ok {
		return
	}

	alerts, err := h.stock.Alerts(c.Request.Context(), cutoff)
	if err != nil {
		h.Error(c, err)
		return
	}
	if alerts == nil {
		alerts = []stock.Alert{}
	}
	h.OK(c, dto.AlertListResponse{Cutoff: h.stock.Cutoff(cutoff), Items: alerts})
}
