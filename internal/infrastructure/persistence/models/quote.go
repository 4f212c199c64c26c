package models

import (
	"time"

	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteModel is the persistence model for the Quote aggregate
type QuoteModel struct {
	AggregateModel
	QuoteNumber    string           `gorm:"type:varchar(30);not null;uniqueIndex"`
	ClientID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	ClientName     string           `gorm:"type:varchar(200);not null"`
	Subtotal       decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Discount       decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Total          decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Status         quote.Status     `gorm:"type:varchar(20);not null;default:'draft';index"`
	ValidUntil     time.Time        `gorm:"not null"`
	Notes          string           `gorm:"type:text"`
	SentAt         *time.Time
	ApprovedAt     *time.Time
	RejectedAt     *time.Time
	RejectReason   string           `gorm:"type:varchar(500)"`
	ConvertedOrder *uuid.UUID       `gorm:"column:converted_order_id;type:uuid"`
	Items          []QuoteItemModel `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// QuoteItemModel is one line item of a quote
type QuoteItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	QuoteID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Kind        quote.ItemKind  `gorm:"type:varchar(20);not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// ToDomain converts the persistence model to a domain Quote
func (m *QuoteModel) ToDomain() *quote.Quote {
	return &quote.Quote{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		QuoteNumber:       m.QuoteNumber,
		ClientID:          m.ClientID,
		ClientName:        m.ClientName,
		Items:             m.itemsToDomain(),
		Subtotal:          m.Subtotal,
		Discount:          m.Discount,
		Total:             m.Total,
		Status:            m.Status,
		ValidUntil:        m.ValidUntil,
		Notes:             m.Notes,
		SentAt:            m.SentAt,
		ApprovedAt:        m.ApprovedAt,
		RejectedAt:        m.RejectedAt,
		RejectReason:      m.RejectReason,
		ConvertedOrder:    m.ConvertedOrder,
	}
}

// QuoteModelFromDomain creates a persistence model from a domain Quote
func QuoteModelFromDomain(q *quote.Quote) *QuoteModel {
	m := &QuoteModel{
		QuoteNumber:    q.QuoteNumber,
		ClientID:       q.ClientID,
		ClientName:     q.ClientName,
		Subtotal:       q.Subtotal,
		Discount:       q.Discount,
		Total:          q.Total,
		Status:         q.Status,
		ValidUntil:     q.ValidUntil,
		Notes:          q.Notes,
		SentAt:         q.SentAt,
		ApprovedAt:     q.ApprovedAt,
		RejectedAt:     q.RejectedAt,
		RejectReason:   q.RejectReason,
		ConvertedOrder: q.ConvertedOrder,
		Items:          make([]QuoteItemModel, len(q.Items)),
	}
	m.FromDomainAggregateRoot(q.BaseAggregateRoot)
	for i, it := range q.Items {
		m.Items[i] = QuoteItemModel{
			ID:          it.ID,
			QuoteID:     q.ID,
			Position:    i,
			Kind:        it.Kind,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		}
	}
	return m
}

func (m *QuoteModel) itemsToDomain() []quote.LineItem {
	items := make([]quote.LineItem, len(m.Items))
	for i, it := range m.Items {
		items[i] = it.ToDomain()
	}
	return items
}

// ToDomain converts the row to a domain line item
func (m QuoteItemModel) ToDomain() quote.LineItem {
	return quote.LineItem{
		ID:          m.ID,
		Kind:        m.Kind,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
	}
}
