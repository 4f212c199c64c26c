package handler

import (
	"net/http"
	"testing"

	orderapp "github.com/erp/bizdesk/internal/application/order"
	quoteapp "github.com/erp/bizdesk/internal/application/quote"
	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	h := NewOrderHandler(orderapp.NewOrderService(env.repos.Orders, env.dm, nil), env.documentService(t))

	r := env.engine(uuid.New(), "staff")
	r.GET("/orders", h.List)
	r.GET("/orders/:id", h.GetByID)
	r.DELETE("/orders/:id", h.Delete)
	r.POST("/orders/:id/start", h.Start)
	r.POST("/orders/:id/complete", h.Complete)
	r.POST("/orders/:id/cancel", h.Cancel)
	r.GET("/orders/:id/pdf", h.PDF)
	return r, env
}

// convertedOrder creates an approved quote for a new client and converts it
func (e *testEnv) convertedOrder(t *testing.T) quoteapp.ConvertedOrderResponse {
	t.Helper()
	acme := e.createClient(t, "Acme")
	svc := e.quoteService()
	ctx := t.Context()

	q, err := svc.Create(ctx, quoteapp.CreateQuoteRequest{
		ClientID: acme.ID,
		Items: []quoteapp.LineItemRequest{
			{Kind: "service", Description: "Paint", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(40)},
		},
	})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, q.ID)
	require.NoError(t, err)
	conv, err := svc.ConvertToOrder(ctx, q.ID, quoteapp.ConvertQuoteRequest{})
	require.NoError(t, err)
	return conv.Order
}

func TestOrderHandler_StartAndComplete(t *testing.T) {
	r, env := newOrderRouter(t)
	o := env.convertedOrder(t)
	id := o.ID.String()

	w := doJSON(t, r, http.MethodGet, "/orders/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeData[orderapp.OrderResponse](t, w)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "120", got.Total.String())
	require.NotNil(t, got.QuoteID)

	w = doJSON(t, r, http.MethodPost, "/orders/"+id+"/complete", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "pending orders must start first")

	w = doJSON(t, r, http.MethodPost, "/orders/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, decodeData[orderapp.OrderResponse](t, w).StartedAt)

	w = doJSON(t, r, http.MethodPost, "/orders/"+id+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decodeData[orderapp.OrderResponse](t, w).Status)

	w = doJSON(t, r, http.MethodPost, "/orders/"+id+"/cancel", map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "completed is final")
	assert.Equal(t, dto.ErrCodeInvalidState, errorCode(t, w))

	w = doJSON(t, r, http.MethodDelete, "/orders/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOrderHandler_Cancel(t *testing.T) {
	r, env := newOrderRouter(t)
	id := env.convertedOrder(t).ID.String()

	w := doJSON(t, r, http.MethodPost, "/orders/"+id+"/cancel", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "reason is required")

	w = doJSON(t, r, http.MethodDelete, "/orders/"+id, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "open orders cannot be deleted")

	w = doJSON(t, r, http.MethodPost, "/orders/"+id+"/cancel", map[string]string{"reason": "Client moved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decodeData[orderapp.OrderResponse](t, w)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "Client moved", cancelled.CancelReason)
}

func TestOrderHandler_ListAndPDF(t *testing.T) {
	r, env := newOrderRouter(t)
	o := env.convertedOrder(t)

	w := doJSON(t, r, http.MethodGet, "/orders?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decodeData[[]orderapp.OrderResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)

	w = doJSON(t, r, http.MethodGet, "/orders?status=completed", nil)
	assert.Empty(t, decodeData[[]orderapp.OrderResponse](t, w))

	w = doJSON(t, r, http.MethodGet, "/orders/"+o.ID.String()+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "%PDF-1.7 stub", w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
