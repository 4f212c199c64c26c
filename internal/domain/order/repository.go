package order

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines persistence operations for orders and their items
type OrderRepository interface {
	// FindByID returns shared.ErrNotFound when no order has the id
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAllNewestFirst(ctx context.Context) ([]*Order, error)
	ExistsByQuote(ctx context.Context, quoteID uuid.UUID) (bool, error)
	Save(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}
