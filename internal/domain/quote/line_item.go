package quote

import (
	"strings"

	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemKind separates labour from goods on a quote
type ItemKind string

const (
	ItemKindService ItemKind = "service"
	ItemKindProduct ItemKind = "product"
)

// IsValid reports whether the kind is known
func (k ItemKind) IsValid() bool {
	return k == ItemKindService || k == ItemKindProduct
}

// LineItem is one priced line of a quote or order
type LineItem struct {
	ID          uuid.UUID
	Kind        ItemKind
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// NewLineItem validates and prices a line item
func NewLineItem(kind ItemKind, description string, quantity, unitPrice decimal.Decimal) (LineItem, error) {
	if !kind.IsValid() {
		return LineItem{}, shared.NewDomainError("INVALID_ITEM_KIND", "Item kind must be service or product")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return LineItem{}, shared.NewDomainError("INVALID_ITEM_DESCRIPTION", "Item description cannot be empty")
	}
	if !quantity.IsPositive() {
		return LineItem{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return LineItem{
		ID:          uuid.New(),
		Kind:        kind,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity.Mul(unitPrice).Round(2),
	}, nil
}

// SumAmounts totals the amounts of the given items
func SumAmounts(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// FilterKind returns the items of the given kind, keeping their order
func FilterKind(items []LineItem, kind ItemKind) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// CloneItems copies items with fresh ids
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		item.ID = uuid.New()
		out[i] = item
	}
	return out
}
