package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsValid checks if the status is a valid order status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether an order may move from s to target
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusInProgress || target == StatusCancelled
	case StatusInProgress:
		return target == StatusCompleted || target == StatusCancelled
	}
	return false
}

// Order is work the business committed to deliver
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber  string
	QuoteID      *uuid.UUID
	ClientID     uuid.UUID
	ClientName   string
	Items        []quote.LineItem
	Total        decimal.Decimal
	Status       Status
	DueDate      *time.Time
	Notes        string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewOrder creates a pending order directly, without a quote
func NewOrder(clientID uuid.UUID, clientName string, items []quote.LineItem) (*Order, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if strings.TrimSpace(clientName) == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client name cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must have at least one item")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		ClientName:        clientName,
		Items:             quote.CloneItems(items),
		Status:            StatusPending,
	}
	o.OrderNumber = quote.GenerateNumber("O", o.CreatedAt, o.ID)
	o.Total = quote.SumAmounts(o.Items)

	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// NewOrderFromQuote converts an approved quote into a pending order.
// The order total carries the quote discount.
func NewOrderFromQuote(q *quote.Quote) (*Order, error) {
	if q.Status != quote.StatusApproved {
		return nil, shared.NewDomainError("INVALID_STATE", "Only approved quotes can be converted to orders")
	}
	if q.ConvertedOrder != nil {
		return nil, shared.NewDomainError("ALREADY_CONVERTED", "Quote has already been converted to an order")
	}

	o, err := NewOrder(q.ClientID, q.ClientName, q.Items)
	if err != nil {
		return nil, err
	}
	quoteID := q.ID
	o.QuoteID = &quoteID
	o.Total = q.Total
	o.Notes = q.Notes
	o.ClearDomainEvents()
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// SetDueDate sets or clears the promised delivery date
func (o *Order) SetDueDate(due *time.Time) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot change a finished order")
	}
	o.DueDate = due
	o.touch()
	return nil
}

// Start moves a pending order into progress
func (o *Order) Start() error {
	now := time.Now()
	if err := o.transition(StatusInProgress); err != nil {
		return err
	}
	o.StartedAt = &now
	return nil
}

// Complete finishes an in-progress order
func (o *Order) Complete() error {
	now := time.Now()
	if err := o.transition(StatusCompleted); err != nil {
		return err
	}
	o.CompletedAt = &now
	return nil
}

// Cancel cancels an unfinished order
func (o *Order) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	now := time.Now()
	if err := o.transition(StatusCancelled); err != nil {
		return err
	}
	o.CancelledAt = &now
	o.CancelReason = reason
	return nil
}

// IsOverdue reports whether an unfinished order is past its due date
func (o *Order) IsOverdue(now time.Time) bool {
	return o.DueDate != nil && !o.Status.IsTerminal() && now.After(*o.DueDate)
}

// MarkDeleted records the deletion event
func (o *Order) MarkDeleted() error {
	if !o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Only completed or cancelled orders can be deleted")
	}
	o.AddDomainEvent(NewOrderDeletedEvent(o))
	return nil
}

func (o *Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change order status from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	o.touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}
