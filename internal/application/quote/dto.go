package quote

import (
	"time"

	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemRequest is one priced line in a quote request
type LineItemRequest struct {
	Kind        string          `json:"kind" binding:"required,oneof=service product"`
	Description string          `json:"description" binding:"required,min=1,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateQuoteRequest represents a request to create a draft quote
type CreateQuoteRequest struct {
	ClientID   uuid.UUID         `json:"client_id" binding:"required"`
	ValidUntil *time.Time        `json:"valid_until"`
	Notes      string            `json:"notes" binding:"max=2000"`
	Discount   *decimal.Decimal  `json:"discount"`
	Items      []LineItemRequest `json:"items" binding:"omitempty,dive"`
}

// UpdateQuoteItemsRequest replaces the items of a draft quote and optionally
// its terms
type UpdateQuoteItemsRequest struct {
	Items      []LineItemRequest `json:"items" binding:"dive"`
	ValidUntil *time.Time        `json:"valid_until"`
	Notes      *string           `json:"notes" binding:"omitempty,max=2000"`
}

// ApplyDiscountRequest sets the absolute discount of a draft quote
type ApplyDiscountRequest struct {
	Discount decimal.Decimal `json:"discount"`
}

// RejectQuoteRequest records the client's refusal
type RejectQuoteRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ConvertQuoteRequest turns an approved quote into an order
type ConvertQuoteRequest struct {
	DueDate *time.Time `json:"due_date"`
}

// QuoteListFilter represents filter options for the quote list
type QuoteListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=draft sent approved rejected"`
	ClientID string `form:"client_id" binding:"omitempty,uuid"`
	Expired  *bool  `form:"expired"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID             uuid.UUID          `json:"id"`
	QuoteNumber    string             `json:"quote_number"`
	ClientID       uuid.UUID          `json:"client_id"`
	ClientName     string             `json:"client_name"`
	Items          []LineItemResponse `json:"items"`
	ServicesTotal  decimal.Decimal    `json:"services_total"`
	ProductsTotal  decimal.Decimal    `json:"products_total"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	Discount       decimal.Decimal    `json:"discount"`
	Total          decimal.Decimal    `json:"total"`
	Status         string             `json:"status"`
	ValidUntil     time.Time          `json:"valid_until"`
	Expired        bool               `json:"expired"`
	Notes          string             `json:"notes"`
	SentAt         *time.Time         `json:"sent_at,omitempty"`
	ApprovedAt     *time.Time         `json:"approved_at,omitempty"`
	RejectedAt     *time.Time         `json:"rejected_at,omitempty"`
	RejectReason   string             `json:"reject_reason,omitempty"`
	ConvertedOrder *uuid.UUID         `json:"converted_order_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Version        int                `json:"version"`
}

// ToLineItemResponses converts domain line items
func ToLineItemResponses(items []quote.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i, it := range items {
		out[i] = LineItemResponse{
			ID:          it.ID,
			Kind:        string(it.Kind),
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		}
	}
	return out
}

// ToQuoteResponse converts a domain Quote to QuoteResponse
func ToQuoteResponse(q *quote.Quote, now time.Time) QuoteResponse {
	return QuoteResponse{
		ID:             q.ID,
		QuoteNumber:    q.QuoteNumber,
		ClientID:       q.ClientID,
		ClientName:     q.ClientName,
		Items:          ToLineItemResponses(q.Items),
		ServicesTotal:  quote.SumAmounts(q.Services()),
		ProductsTotal:  quote.SumAmounts(q.Products()),
		Subtotal:       q.Subtotal,
		Discount:       q.Discount,
		Total:          q.Total,
		Status:         string(q.Status),
		ValidUntil:     q.ValidUntil,
		Expired:        q.IsExpired(now),
		Notes:          q.Notes,
		SentAt:         q.SentAt,
		ApprovedAt:     q.ApprovedAt,
		RejectedAt:     q.RejectedAt,
		RejectReason:   q.RejectReason,
		ConvertedOrder: q.ConvertedOrder,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
		Version:        q.Version,
	}
}

// ToLineItems validates and prices the requested items
func ToLineItems(reqs []LineItemRequest) ([]quote.LineItem, error) {
	items := make([]quote.LineItem, 0, len(reqs))
	for _, r := range reqs {
		item, err := quote.NewLineItem(quote.ItemKind(r.Kind), r.Description, r.Quantity, r.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ConvertedOrderResponse summarizes the order created from a quote
type ConvertedOrderResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
}

// ConversionResponse is the result of converting a quote into an order
type ConversionResponse struct {
	Quote QuoteResponse          `json:"quote"`
	Order ConvertedOrderResponse `json:"order"`
}
