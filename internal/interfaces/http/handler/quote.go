package handler

import (
	"context"

	"github.com/erp/bizdesk/internal/application/document"
	quoteapp "github.com/erp/bizdesk/internal/application/quote"
	reportapp "github.com/erp/bizdesk/internal/application/report"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QuoteHandler handles quote-related API endpoints
type QuoteHandler struct {
	BaseHandler
	quoteService    *quoteapp.QuoteService
	documentService *document.DocumentService
}

// NewQuoteHandler creates a new QuoteHandler. documents may be nil when PDF
// rendering is not configured.
func NewQuoteHandler(quoteService *quoteapp.QuoteService, documents *document.DocumentService) *QuoteHandler {
	return &QuoteHandler{
		quoteService:    quoteService,
		documentService: documents,
	}
}

// Create handles POST /quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var req quoteapp.CreateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quote, err := h.quoteService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, quote)
}

// GetByID handles GET /quotes/:id
func (h *QuoteHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}

	quote, err := h.quoteService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, quote)
}

// List handles GET /quotes
func (h *QuoteHandler) List(c *gin.Context) {
	var filter quoteapp.QuoteListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = pageDefaults(filter.Page, filter.PageSize)

	quotes, total, err := h.quoteService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, quotes, total, filter.Page, filter.PageSize)
}

// UpdateItems handles PUT /quotes/:id/items
func (h *QuoteHandler) UpdateItems(c *gin.Context) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}

	var req quoteapp.UpdateQuoteItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quote, err := h.quoteService.UpdateItems(c.Request.Context(), id, req)
	h.writeQuote(c, quote, err)
}

// ApplyDiscount handles POST /quotes/:id/discount
func (h *QuoteHandler) ApplyDiscount(c *gin.Context) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}

	var req quoteapp.ApplyDiscountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quote, err := h.quoteService.ApplyDiscount(c.Request.Context(), id, req)
	h.writeQuote(c, quote, err)
}

// Send handles POST /quotes/:id/send
func (h *QuoteHandler) Send(c *gin.Context) {
	h.transition(c, h.quoteService.Send)
}

// Approve handles POST /quotes/:id/approve
func (h *QuoteHandler) Approve(c *gin.Context) {
	h.transition(c, h.quoteService.Approve)
}

// Reject handles POST /quotes/:id/reject. The body is optional.
func (h *QuoteHandler) Reject(c *gin.Context) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}

	var req quoteapp.RejectQuoteRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	quote, err := h.quoteService.Reject(c.Request.Context(), id, req)
	h.writeQuote(c, quote, err)
}

// Convert handles POST /quotes/:id/convert
func (h *QuoteHandler) Convert(c *gin.Context) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}

	var req quoteapp.ConvertQuoteRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	result, err := h.quoteService.ConvertToOrder(c.Request.Context(), id, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// Delete handles DELETE /quotes/:id
func (h *QuoteHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}

	if err := h.quoteService.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// PDF handles GET /quotes/:id/pdf
func (h *QuoteHandler) PDF(c *gin.Context) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}
	if h.documentService == nil {
		h.HandleDomainError(c, reportapp.ErrPDFDisabled)
		return
	}

	doc, err := h.documentService.RenderQuotePDF(c.Request.Context(), id, renderOptions(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.sendDocument(c, doc)
}

func (h *QuoteHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID) (*quoteapp.QuoteResponse, error)) {
	id, ok := h.parseID(c, "id", "quote")
	if !ok {
		return
	}
	quote, err := fn(c.Request.Context(), id)
	h.writeQuote(c, quote, err)
}

func (h *QuoteHandler) writeQuote(c *gin.Context, quote *quoteapp.QuoteResponse, err error) {
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, quote)
}
