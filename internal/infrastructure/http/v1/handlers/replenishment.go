package handlers

import (
	"github.com/gin-gonic/gin"

	"retailcore/internal/domain/stock"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// ReplenishmentHandler manages per-SKU replenishment parameters.
type ReplenishmentHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewReplenishmentHandler creates a new replenishment handler.
func NewReplenishmentHandler(base *BaseHandler, service *stock.Service) *ReplenishmentHandler {
	return &ReplenishmentHandler{BaseHandler: base, service: service}
}

// List handles GET /replenishment
func (h *ReplenishmentHandler) List(c *gin.Context) {
	params, err := h.service.ListParameters(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	if params == nil {
		params = []stock.Parameter{}
	}
	h.OK(c, gin.H{"items": params})
}

// Get handles GET /replenishment/:skuId
func (h *ReplenishmentHandler) Get(c *gin.Context) {
	skuID, ok := h.ParamID(c, "skuId")
	if !ok {
		return
	}

	p, err := h.service.GetParameter(c.Request.Context(), skuID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Put handles PUT /replenishment/:skuId
func (h *ReplenishmentHandler) Put(c *gin.Context) {
	skuID, ok := h.ParamID(c, "skuId")
	if !ok {
		return
	}

	var req dto.ParameterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.SaveParameter(c.Request.Context(), req.ToParameter(skuID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Delete handles DELETE /replenishment/:skuId
func (h *ReplenishmentHandler) Delete(c *gin.Context) {
	skuID, ok := h.ParamID(c, "skuId")
	if !ok {
		return
	}

	if err := h.service.DeleteParameter(c.Request.Context(), skuID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
