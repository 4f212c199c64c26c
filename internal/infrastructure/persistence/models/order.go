package models

import (
	"time"

	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	OrderNumber  string           `gorm:"type:varchar(30);not null;uniqueIndex"`
	QuoteID      *uuid.UUID       `gorm:"type:uuid;index"`
	ClientID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	ClientName   string           `gorm:"type:varchar(200);not null"`
	Total        decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Status       order.Status     `gorm:"type:varchar(20);not null;default:'pending';index"`
	DueDate      *time.Time
	Notes        string           `gorm:"type:text"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string           `gorm:"type:varchar(500)"`
	Items        []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one line item of an order
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Kind        quote.ItemKind  `gorm:"type:varchar(20);not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	return &order.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		QuoteID:           m.QuoteID,
		ClientID:          m.ClientID,
		ClientName:        m.ClientName,
		Items:             m.itemsToDomain(),
		Total:             m.Total,
		Status:            m.Status,
		DueDate:           m.DueDate,
		Notes:             m.Notes,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:  o.OrderNumber,
		QuoteID:      o.QuoteID,
		ClientID:     o.ClientID,
		ClientName:   o.ClientName,
		Total:        o.Total,
		Status:       o.Status,
		DueDate:      o.DueDate,
		Notes:        o.Notes,
		StartedAt:    o.StartedAt,
		CompletedAt:  o.CompletedAt,
		CancelledAt:  o.CancelledAt,
		CancelReason: o.CancelReason,
		Items:        make([]OrderItemModel, len(o.Items)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i, it := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:          it.ID,
			OrderID:     o.ID,
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

func (m *OrderModel) itemsToDomain() []quote.LineItem {
	items := make([]quote.LineItem, len(m.Items))
	for i, it := range m.Items {
		items[i] = quote.LineItem{
			ID:          it.ID,
			Kind:        it.Kind,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		}
	}
	return items
}
