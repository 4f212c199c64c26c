package quote

import (
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeQuote identifies quote events
const AggregateTypeQuote = "Quote"

// Event type constants
const (
	EventTypeQuoteCreated       = "QuoteCreated"
	EventTypeQuoteUpdated       = "QuoteUpdated"
	EventTypeQuoteStatusChanged = "QuoteStatusChanged"
	EventTypeQuoteConverted     = "QuoteConverted"
	EventTypeQuoteDeleted       = "QuoteDeleted"
)

// QuoteCreatedEvent is published when a draft quote is created
type QuoteCreatedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string          `json:"quote_number"`
	ClientID    uuid.UUID       `json:"client_id"`
	Total       decimal.Decimal `json:"total"`
}

// NewQuoteCreatedEvent creates a new QuoteCreatedEvent
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteCreated, AggregateTypeQuote, q.ID),
		QuoteNumber:     q.QuoteNumber,
		ClientID:        q.ClientID,
		Total:           q.Total,
	}
}

// QuoteUpdatedEvent is published when items, discount or terms change
type QuoteUpdatedEvent struct {
	shared.BaseDomainEvent
	Total decimal.Decimal `json:"total"`
}

// NewQuoteUpdatedEvent creates a new QuoteUpdatedEvent
func NewQuoteUpdatedEvent(q *Quote) *QuoteUpdatedEvent {
	return &QuoteUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteUpdated, AggregateTypeQuote, q.ID),
		Total:           q.Total,
	}
}

// QuoteStatusChangedEvent is published on every status transition
type QuoteStatusChangedEvent struct {
	shared.BaseDomainEvent
	From Status `json:"from"`
	To   Status `json:"to"`
}

// NewQuoteStatusChangedEvent creates a new QuoteStatusChangedEvent
func NewQuoteStatusChangedEvent(q *Quote, from Status) *QuoteStatusChangedEvent {
	return &QuoteStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteStatusChanged, AggregateTypeQuote, q.ID),
		From:            from,
		To:              q.Status,
	}
}

// QuoteConvertedEvent is published when an order is created from the quote
type QuoteConvertedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewQuoteConvertedEvent creates a new QuoteConvertedEvent
func NewQuoteConvertedEvent(q *Quote, orderID uuid.UUID) *QuoteConvertedEvent {
	return &QuoteConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteConverted, AggregateTypeQuote, q.ID),
		OrderID:         orderID,
	}
}

// QuoteDeletedEvent is published when a quote is removed
type QuoteDeletedEvent struct {
	shared.BaseDomainEvent
	QuoteNumber string `json:"quote_number"`
}

// NewQuoteDeletedEvent creates a new QuoteDeletedEvent
func NewQuoteDeletedEvent(q *Quote) *QuoteDeletedEvent {
	return &QuoteDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteDeleted, AggregateTypeQuote, q.ID),
		QuoteNumber:     q.QuoteNumber,
	}
}
