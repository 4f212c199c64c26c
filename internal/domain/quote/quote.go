package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a quote
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid checks if the status is a valid quote status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether a quote may move from s to target.
// Approved and rejected quotes are final.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusSent || target == StatusApproved || target == StatusRejected
	case StatusSent:
		return target == StatusApproved || target == StatusRejected
	}
	return false
}

// Quote is an estimate offered to a client
type Quote struct {
	shared.BaseAggregateRoot
	QuoteNumber    string
	ClientID       uuid.UUID
	ClientName     string
	Items          []LineItem
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
	Status         Status
	ValidUntil     time.Time
	Notes          string
	SentAt         *time.Time
	ApprovedAt     *time.Time
	RejectedAt     *time.Time
	RejectReason   string
	ConvertedOrder *uuid.UUID
}

// NewQuote creates a draft quote for a client
func NewQuote(clientID uuid.UUID, clientName string, validUntil time.Time, items []LineItem) (*Quote, error) {
	if clientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client ID cannot be empty")
	}
	if strings.TrimSpace(clientName) == "" {
		return nil, shared.NewDomainError("INVALID_CLIENT", "Client name cannot be empty")
	}
	if validUntil.IsZero() {
		return nil, shared.NewDomainError("INVALID_VALIDITY", "Validity date is required")
	}

	q := &Quote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          clientID,
		ClientName:        clientName,
		Status:            StatusDraft,
		ValidUntil:        validUntil,
		Discount:          decimal.Zero,
	}
	q.QuoteNumber = GenerateNumber("Q", q.CreatedAt, q.ID)
	q.Items = append([]LineItem(nil), items...)
	q.recalculate()

	q.AddDomainEvent(NewQuoteCreatedEvent(q))
	return q, nil
}

// GenerateNumber builds a human-readable document number such as Q-20260102-1A2B
func GenerateNumber(prefix string, at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), strings.ToUpper(id.String()[:4]))
}

// SetItems replaces the line items of a draft quote
func (q *Quote) SetItems(items []LineItem) error {
	if q.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Items can only be changed on draft quotes")
	}
	q.Items = append([]LineItem(nil), items...)
	q.recalculate()
	if q.Discount.GreaterThan(q.Subtotal) {
		q.Discount = q.Subtotal
		q.recalculate()
	}
	q.touch()
	q.AddDomainEvent(NewQuoteUpdatedEvent(q))
	return nil
}

// ApplyDiscount sets an absolute discount on a draft quote
func (q *Quote) ApplyDiscount(discount decimal.Decimal) error {
	if q.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Discount can only be changed on draft quotes")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if discount.GreaterThan(q.Subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed subtotal")
	}
	q.Discount = discount
	q.recalculate()
	q.touch()
	q.AddDomainEvent(NewQuoteUpdatedEvent(q))
	return nil
}

// UpdateTerms changes the validity date and notes of a draft quote
func (q *Quote) UpdateTerms(validUntil time.Time, notes string) error {
	if q.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Terms can only be changed on draft quotes")
	}
	if validUntil.IsZero() {
		return shared.NewDomainError("INVALID_VALIDITY", "Validity date is required")
	}
	q.ValidUntil = validUntil
	q.Notes = notes
	q.touch()
	q.AddDomainEvent(NewQuoteUpdatedEvent(q))
	return nil
}

// Send marks the quote as delivered to the client
func (q *Quote) Send() error {
	if len(q.Items) == 0 {
		return shared.NewDomainError("EMPTY_QUOTE", "Cannot send a quote without items")
	}
	now := time.Now()
	if err := q.transition(StatusSent); err != nil {
		return err
	}
	q.SentAt = &now
	return nil
}

// Approve records the client's acceptance
func (q *Quote) Approve() error {
	if len(q.Items) == 0 {
		return shared.NewDomainError("EMPTY_QUOTE", "Cannot approve a quote without items")
	}
	now := time.Now()
	if err := q.transition(StatusApproved); err != nil {
		return err
	}
	q.ApprovedAt = &now
	return nil
}

// Reject records the client's refusal
func (q *Quote) Reject(reason string) error {
	now := time.Now()
	if err := q.transition(StatusRejected); err != nil {
		return err
	}
	q.RejectedAt = &now
	q.RejectReason = strings.TrimSpace(reason)
	return nil
}

// MarkConverted links the quote to the order created from it
func (q *Quote) MarkConverted(orderID uuid.UUID) error {
	if q.Status != StatusApproved {
		return shared.NewDomainError("INVALID_STATE", "Only approved quotes can be converted to orders")
	}
	if q.ConvertedOrder != nil {
		return shared.NewDomainError("ALREADY_CONVERTED", "Quote has already been converted to an order")
	}
	q.ConvertedOrder = &orderID
	q.touch()
	q.AddDomainEvent(NewQuoteConvertedEvent(q, orderID))
	return nil
}

// CanDelete reports whether the quote may be removed
func (q *Quote) CanDelete() bool {
	return q.Status == StatusDraft || q.Status == StatusRejected
}

// MarkDeleted records the deletion event
func (q *Quote) MarkDeleted() error {
	if !q.CanDelete() {
		return shared.NewDomainError("INVALID_STATE", "Only draft or rejected quotes can be deleted")
	}
	q.AddDomainEvent(NewQuoteDeletedEvent(q))
	return nil
}

// IsExpired reports whether the validity date has passed without a decision
func (q *Quote) IsExpired(now time.Time) bool {
	if q.Status == StatusApproved || q.Status == StatusRejected {
		return false
	}
	return now.After(endOfDay(q.ValidUntil))
}

// Services returns the service items
func (q *Quote) Services() []LineItem {
	return FilterKind(q.Items, ItemKindService)
}

// Products returns the product items
func (q *Quote) Products() []LineItem {
	return FilterKind(q.Items, ItemKindProduct)
}

func (q *Quote) transition(target Status) error {
	if !q.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change quote status from %s to %s", q.Status, target))
	}
	from := q.Status
	q.Status = target
	q.touch()
	q.AddDomainEvent(NewQuoteStatusChangedEvent(q, from))
	return nil
}

func (q *Quote) recalculate() {
	q.Subtotal = SumAmounts(q.Items)
	q.Total = q.Subtotal.Sub(q.Discount)
}

func (q *Quote) touch() {
	q.UpdatedAt = time.Now()
	q.IncrementVersion()
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
