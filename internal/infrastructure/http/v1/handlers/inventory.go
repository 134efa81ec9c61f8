package handlers

import (
	"github.com/gin-gonic/gin"

	"retailcore/internal/domain/inventory"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// InventoryHandler records opening balances, receipts and adjustments.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// InitialStock handles POST /inventory/initial
func (h *InventoryHandler) InitialStock(c *gin.Context) {
	var req dto.StockFactRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.service.RegisterInitialStock(c.Request.Context(), req.ToInput())
	h.respond(c, res, err)
}

// Receipt handles POST /inventory/receipts
func (h *InventoryHandler) Receipt(c *gin.Context) {
	var req dto.StockFactRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.service.RegisterReceipt(c.Request.Context(), req.ToInput())
	h.respond(c, res, err)
}

// Adjustment handles POST /inventory/adjustments
func (h *InventoryHandler) Adjustment(c *gin.Context) {
	var req dto.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.service.RegisterAdjustment(c.Request.Context(), req.ToInput())
	h.respond(c, res, err)
}

// respond answers 201 for a new movement and 200 when it already existed.
func (h *InventoryHandler) respond(c *gin.Context, res inventory.Result, err error) {
	if err != nil {
		h.Error(c, err)
		return
	}
	if res.Applied {
		h.Created(c, res)
		return
	}
	h.OK(c, res)
}
