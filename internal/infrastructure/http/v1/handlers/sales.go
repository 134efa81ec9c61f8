package handlers

import (
	"github.com/gin-gonic/gin"

	"retailcore/internal/domain/sales"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// SalesHandler handles HTTP requests for sales.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(base *BaseHandler, service *sales.Service) *SalesHandler {
	return &SalesHandler{BaseHandler: base, service: service}
}

// Register handles POST /sales
func (h *SalesHandler) Register(c *gin.Context) {
	var req dto.RegisterSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	sale, err := h.service.Register(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, sale)
}

// Get handles GET /sales/:id
func (h *SalesHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	sale, err := h.service.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// List handles GET /sales
func (h *SalesHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	channelID, ok := h.QueryID(c, "channelId", q.ChannelID)
	if !ok {
		return
	}

	result, err := h.service.List(c.Request.Context(), sales.Filter{
		ChannelID: channelID,
		State:     sales.State(q.State),
		Reference: q.Reference,
		From:      q.From,
		To:        q.To,
		Page:      q.Page(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Void handles POST /sales/:id/void
func (h *SalesHandler) Void(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.VoidSaleRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Void(c.Request.Context(), saleID, req.Reason); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SuccessResponse{Success: true, Message: "sale voided"})
}
