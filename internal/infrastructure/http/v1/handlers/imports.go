package handlers

import (
	"github.com/gin-gonic/gin"

	"retailcore/internal/domain/imports"
	"retailcore/internal/infrastructure/http/v1/dto"
)

// ImportHandler runs sale imports and serves the batch log.
type ImportHandler struct {
	*BaseHandler
	service *imports.Service
}

// NewImportHandler creates a new import handler.
func NewImportHandler(base *BaseHandler, service *imports.Service) *ImportHandler {
	return &ImportHandler{BaseHandler: base, service: service}
}

// ImportSales handles POST /imports/sales
func (h *ImportHandler) ImportSales(c *gin.Context) {
	var req dto.ImportSalesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	opts, err := req.ToOptions()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.Import(c.Request.Context(), req.Rows, opts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// List handles GET /imports
func (h *ImportHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListBatches(c.Request.Context(), q.Page())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /imports/:id
func (h *ImportHandler) Get(c *gin.Context) {
	batchID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	batch, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, batch)
}

// Errors handles GET /imports/:id/errors
func (h *ImportHandler) Errors(c *gin.Context) {
	batchID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.ListBatchErrors(c.Request.Context(), batchID, q.Page())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
