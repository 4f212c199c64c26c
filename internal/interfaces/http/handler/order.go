package handler

import (
	"context"

	"github.com/erp/bizdesk/internal/application/document"
	orderapp "github.com/erp/bizdesk/internal/application/order"
	reportapp "github.com/erp/bizdesk/internal/application/report"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles order-related API endpoints. Orders are only created
// by converting quotes.
type OrderHandler struct {
	BaseHandler
	orderService    *orderapp.OrderService
	documentService *document.DocumentService
}

// NewOrderHandler creates a new OrderHandler. documents may be nil when PDF
// rendering is not configured.
func NewOrderHandler(orderService *orderapp.OrderService, documents *document.DocumentService) *OrderHandler {
	return &OrderHandler{
		orderService:    orderService,
		documentService: documents,
	}
}

// GetByID handles GET /orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	h.transition(c, h.orderService.GetByID)
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var filter orderapp.OrderListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = pageDefaults(filter.Page, filter.PageSize)

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// Start handles POST /orders/:id/start
func (h *OrderHandler) Start(c *gin.Context) {
	h.transition(c, h.orderService.Start)
}

// Complete handles POST /orders/:id/complete
func (h *OrderHandler) Complete(c *gin.Context) {
	h.transition(c, h.orderService.Complete)
}

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c, "id", "order")
	if !ok {
		return
	}

	var req orderapp.CancelOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// Delete handles DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id", "order")
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// PDF handles GET /orders/:id/pdf
func (h *OrderHandler) PDF(c *gin.Context) {
	id, ok := h.parseID(c, "id", "order")
	if !ok {
		return
	}
	if h.documentService == nil {
		h.HandleDomainError(c, reportapp.ErrPDFDisabled)
		return
	}

	doc, err := h.documentService.RenderOrderPDF(c.Request.Context(), id, renderOptions(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.sendDocument(c, doc)
}

func (h *OrderHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*orderapp.OrderResponse, error)) {
	id, ok := h.parseID(c, "id", "order")
	if !ok {
		return
	}

	order, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}
