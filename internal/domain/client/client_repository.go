package client

import (
	"context"

	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientRepository defines persistence operations for clients
type ClientRepository interface {
	// FindByID returns shared.ErrNotFound when no client has the id
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)

	// FindAll returns a filtered, paginated page of clients
	FindAll(ctx context.Context, filter shared.Filter) ([]Client, error)

	// FindAllNewestFirst returns every client ordered by creation time, newest first
	FindAllNewestFirst(ctx context.Context) ([]*Client, error)

	// Count returns the number of clients matching the filter, ignoring pagination
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByDocumentNumber reports whether another client already uses the number
	ExistsByDocumentNumber(ctx context.Context, documentNumber string, excludeID *uuid.UUID) (bool, error)

	// Save creates or updates a client
	Save(ctx context.Context, c *Client) error

	// Delete removes a client, returning shared.ErrNotFound when it does not exist
	Delete(ctx context.Context, id uuid.UUID) error
}
