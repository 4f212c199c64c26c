package quote

import (
	"context"

	"github.com/google/uuid"
)

// QuoteRepository defines persistence operations for quotes and their items
type QuoteRepository interface {
	// FindByID returns shared.ErrNotFound when no quote has the id
	FindByID(ctx context.Context, id uuid.UUID) (*Quote, error)
	FindAllNewestFirst(ctx context.Context) ([]*Quote, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]*Quote, error)
	// Save creates or updates a quote and replaces its line items
	Save(ctx context.Context, q *Quote) error
	Delete(ctx context.Context, id uuid.UUID) error
}
