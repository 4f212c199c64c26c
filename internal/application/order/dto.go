package order

import (
	"time"

	quoteapp "github.com/erp/bizdesk/internal/application/quote"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CancelOrderRequest cancels an unfinished order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,notblank,max=500"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
	Overdue  *bool  `form:"overdue"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID           uuid.UUID                   `json:"id"`
	OrderNumber  string                      `json:"order_number"`
	QuoteID      *uuid.UUID                  `json:"quote_id,omitempty"`
	ClientID     uuid.UUID                   `json:"client_id"`
	ClientName   string                      `json:"client_name"`
	Items        []quoteapp.LineItemResponse `json:"items"`
	Total        decimal.Decimal             `json:"total"`
	Status       string                      `json:"status"`
	DueDate      *time.Time                  `json:"due_date,omitempty"`
	Overdue      bool                        `json:"overdue"`
	Notes        string                      `json:"notes"`
	StartedAt    *time.Time                  `json:"started_at,omitempty"`
	CompletedAt  *time.Time                  `json:"completed_at,omitempty"`
	CancelledAt  *time.Time                  `json:"cancelled_at,omitempty"`
	CancelReason string                      `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	Version      int                         `json:"version"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *order.Order, now time.Time) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		QuoteID:      o.QuoteID,
		ClientID:     o.ClientID,
		ClientName:   o.ClientName,
		Items:        quoteapp.ToLineItemResponses(o.Items),
		Total:        o.Total,
		Status:       string(o.Status),
		DueDate:      o.DueDate,
		Overdue:      o.IsOverdue(now),
		Notes:        o.Notes,
		StartedAt:    o.StartedAt,
		CompletedAt:  o.CompletedAt,
		CancelledAt:  o.CancelledAt,
		CancelReason: o.CancelReason,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Version:      o.Version,
	}
}
