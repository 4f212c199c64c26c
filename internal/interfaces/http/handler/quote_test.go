package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/erp/bizdesk/internal/application/document"
	quoteapp "github.com/erp/bizdesk/internal/application/quote"
	"github.com/erp/bizdesk/internal/infrastructure/printing"
	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct{}

func (stubRenderer) Render(context.Context, *printing.RenderRequest) (*printing.RenderResult, error) {
	return &printing.RenderResult{PDFData: []byte("%PDF-1.7 stub"), PageCount: 2}, nil
}

func (stubRenderer) Close() error { return nil }

func (e *testEnv) documentService(t *testing.T) *document.DocumentService {
	t.Helper()
	templates, err := printing.NewTemplateStore("")
	require.NoError(t, err)
	engine, err := printing.NewTemplateEngine("en-US", "USD")
	require.NoError(t, err)
	renders := printing.NewRenderCache(time.Minute, 10)
	t.Cleanup(renders.Close)
	return document.NewDocumentService(e.repos.Quotes, e.repos.Orders, e.dm, templates, engine, stubRenderer{}, renders, nil)
}

func (e *testEnv) quoteService() *quoteapp.QuoteService {
	return quoteapp.NewQuoteService(e.repos.Quotes, e.repos.Orders, e.repos.Clients, e.dm, nil)
}

func newQuoteRouter(t *testing.T, docs *document.DocumentService) (*gin.Engine, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	if docs == nil {
		docs = env.documentService(t)
	}
	h := NewQuoteHandler(env.quoteService(), docs)

	r := env.engine(uuid.New(), "staff")
	r.GET("/quotes", h.List)
	r.POST("/quotes", h.Create)
	r.GET("/quotes/:id", h.GetByID)
	r.DELETE("/quotes/:id", h.Delete)
	r.PUT("/quotes/:id/items", h.UpdateItems)
	r.POST("/quotes/:id/discount", h.ApplyDiscount)
	r.POST("/quotes/:id/send", h.Send)
	r.POST("/quotes/:id/approve", h.Approve)
	r.POST("/quotes/:id/reject", h.Reject)
	r.POST("/quotes/:id/convert", h.Convert)
	r.GET("/quotes/:id/pdf", h.PDF)
	return r, env
}

func draftQuoteBody(clientID uuid.UUID) map[string]any {
	return map[string]any{
		"client_id": clientID,
		"notes":     "Kitchen renovation",
		"items": []map[string]any{
			{"kind": "service", "description": "Installation", "quantity": "2", "unit_price": "150"},
			{"kind": "product", "description": "Cabinet", "quantity": "1", "unit_price": "400.50"},
		},
	}
}

func createQuote(t *testing.T, r http.Handler, clientID uuid.UUID) quoteapp.QuoteResponse {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/quotes", draftQuoteBody(clientID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[quoteapp.QuoteResponse](t, w)
}

func TestQuoteHandler_Lifecycle(t *testing.T) {
	r, env := newQuoteRouter(t, nil)
	acme := env.createClient(t, "Acme")

	q := createQuote(t, r, acme.ID)
	assert.Equal(t, "draft", q.Status)
	assert.Equal(t, "Acme", q.ClientName)
	assert.Equal(t, "700.5", q.Subtotal.String())
	assert.Equal(t, "300", q.ServicesTotal.String())
	id := q.ID.String()

	w := doJSON(t, r, http.MethodPost, "/quotes/"+id+"/discount", map[string]any{"discount": "50.5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "650", decodeData[quoteapp.QuoteResponse](t, w).Total.String())

	w = doJSON(t, r, http.MethodPost, "/quotes/"+id+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decodeData[quoteapp.QuoteResponse](t, w)
	assert.Equal(t, "sent", sent.Status)
	assert.NotNil(t, sent.SentAt)

	w = doJSON(t, r, http.MethodPut, "/quotes/"+id+"/items", map[string]any{"items": []map[string]any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "items are frozen once sent")
	assert.Equal(t, dto.ErrCodeInvalidState, errorCode(t, w))

	w = doJSON(t, r, http.MethodPost, "/quotes/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/quotes/"+id+"/convert", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conv := decodeData[quoteapp.ConversionResponse](t, w)
	assert.Equal(t, "pending", conv.Order.Status)
	assert.Equal(t, "650", conv.Order.Total.String())
	require.NotNil(t, conv.Quote.ConvertedOrder)
	assert.Equal(t, conv.Order.ID, *conv.Quote.ConvertedOrder)

	w = doJSON(t, r, http.MethodPost, "/quotes/"+id+"/convert", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeAlreadyConverted, errorCode(t, w))

	w = doJSON(t, r, http.MethodDelete, "/quotes/"+id, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "approved quotes are kept")
}

func TestQuoteHandler_RejectWithAndWithoutBody(t *testing.T) {
	r, env := newQuoteRouter(t, nil)
	acme := env.createClient(t, "Acme")

	first := createQuote(t, r, acme.ID)
	w := doJSON(t, r, http.MethodPost, "/quotes/"+first.ID.String()+"/reject", map[string]string{"reason": "Too expensive"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rejected := decodeData[quoteapp.QuoteResponse](t, w)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "Too expensive", rejected.RejectReason)

	second := createQuote(t, r, acme.ID)
	w = doJSON(t, r, http.MethodPost, "/quotes/"+second.ID.String()+"/reject", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/quotes/"+second.ID.String()+"/approve", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "rejected is final")

	w = doJSON(t, r, http.MethodDelete, "/quotes/"+second.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestQuoteHandler_CreateErrors(t *testing.T) {
	r, env := newQuoteRouter(t, nil)

	w := doJSON(t, r, http.MethodPost, "/quotes", draftQuoteBody(uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown client")

	acme := env.createClient(t, "Acme")
	body := draftQuoteBody(acme.ID)
	body["items"] = []map[string]any{{"kind": "labour", "description": "x", "quantity": "1", "unit_price": "1"}}
	w = doJSON(t, r, http.MethodPost, "/quotes", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	empty := map[string]any{"client_id": acme.ID}
	w = doJSON(t, r, http.MethodPost, "/quotes", empty)
	require.Equal(t, http.StatusCreated, w.Code, "drafts may start empty")
	q := decodeData[quoteapp.QuoteResponse](t, w)

	w = doJSON(t, r, http.MethodPost, "/quotes/"+q.ID.String()+"/send", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeEmptyQuote, errorCode(t, w))
}

func TestQuoteHandler_ListFiltersByStatus(t *testing.T) {
	r, env := newQuoteRouter(t, nil)
	acme := env.createClient(t, "Acme")
	createQuote(t, r, acme.ID)
	sent := createQuote(t, r, acme.ID)
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/quotes/"+sent.ID.String()+"/send", nil).Code)

	w := doJSON(t, r, http.MethodGet, "/quotes?status=sent", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeData[[]quoteapp.QuoteResponse](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, sent.ID, got[0].ID)

	w = doJSON(t, r, http.MethodGet, "/quotes?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteHandler_PDF(t *testing.T) {
	r, env := newQuoteRouter(t, nil)
	acme := env.createClient(t, "Acme")
	q := createQuote(t, r, acme.ID)

	w := doJSON(t, r, http.MethodGet, "/quotes/"+q.ID.String()+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, document.ContentTypePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("X-Page-Count"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")
	assert.Equal(t, "%PDF-1.7 stub", w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/quotes/"+q.ID.String()+"/pdf?download=1", nil)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	w = doJSON(t, r, http.MethodGet, "/quotes/"+uuid.NewString()+"/pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuoteHandler_PDFDisabled(t *testing.T) {
	env := newTestEnv(t)
	h := NewQuoteHandler(env.quoteService(), nil)
	r := env.engine(uuid.New(), "staff")
	r.GET("/quotes/:id/pdf", h.PDF)

	w := doJSON(t, r, http.MethodGet, "/quotes/"+uuid.NewString()+"/pdf", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodePDFDisabled, errorCode(t, w))
}
