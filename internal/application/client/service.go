package client

import (
	"context"
	"strings"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientService handles client registry operations. Reads are served from
// the DataManager snapshot; writes go to the repository.
type ClientService struct {
	clientRepo     client.ClientRepository
	cache          *cache.DataManager
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo client.ClientRepository, dm *cache.DataManager, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		clientRepo: clientRepo,
		cache:      dm,
		logger:     logger.Named("client-service"),
	}
}

// SetEventPublisher sets the publisher that receives confirmed changes
func (s *ClientService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create registers a new client
func (s *ClientService) Create(ctx context.Context, req CreateClientRequest) (*ClientResponse, error) {
	c, err := client.NewClient(req.details())
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueDocument(ctx, c.DocumentNumber, nil); err != nil {
		return nil, err
	}

	m := s.cache.Clients.Optimistic(cache.OpAdd, c, "")
	if err := s.clientRepo.Save(ctx, c); err != nil {
		m.Rollback()
		return nil, err
	}
	m.Commit()
	s.publish(ctx, c)

	response := ToClientResponse(c)
	return &response, nil
}

// GetByID returns a client, preferring the cached snapshot
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	c, ok := s.cache.Clients.Find(id.String())
	if !ok {
		var err error
		if c, err = s.clientRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}
	response := ToClientResponse(c)
	return &response, nil
}

// List filters and paginates the cached clients. The snapshot keeps the
// store order, newest first.
func (s *ClientService) List(ctx context.Context, filter ClientListFilter) ([]ClientResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	all, err := s.cache.Clients.Current(ctx)
	if err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*client.Client, 0, len(all))
	for _, c := range all {
		if filter.Type != "" && string(c.Type) != filter.Type {
			continue
		}
		if search != "" && !matchesSearch(c, search) {
			continue
		}
		matched = append(matched, c)
	}

	page := shared.Paginate(matched, filter.Page, filter.PageSize)
	return ToClientResponses(page.Items), page.Total, nil
}

// Update applies a partial update to a client
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req UpdateClientRequest) (*ClientResponse, error) {
	c, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Update(req.apply(c.Details())); err != nil {
		return nil, err
	}
	if req.DocumentNumber != nil {
		if err := s.ensureUniqueDocument(ctx, c.DocumentNumber, &c.ID); err != nil {
			return nil, err
		}
	}

	m := s.cache.Clients.Optimistic(cache.OpUpdate, c, c.ID.String())
	if err := s.clientRepo.Save(ctx, c); err != nil {
		m.Rollback()
		return nil, err
	}
	m.Commit()
	s.publish(ctx, c)

	response := ToClientResponse(c)
	return &response, nil
}

// Delete removes a client that has no quotes or orders
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	inUse, err := s.hasDocuments(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return shared.NewDomainError("CLIENT_IN_USE", "Cannot delete a client that has quotes or orders")
	}
	c.MarkDeleted()

	m := s.cache.Clients.Optimistic(cache.OpDelete, c, c.ID.String())
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		m.Rollback()
		return err
	}
	m.Commit()
	s.publish(ctx, c)
	return nil
}

func (s *ClientService) ensureUniqueDocument(ctx context.Context, doc string, excludeID *uuid.UUID) error {
	if doc == "" {
		return nil
	}
	exists, err := s.clientRepo.ExistsByDocumentNumber(ctx, doc, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError("ALREADY_EXISTS", "A client with this document number already exists")
	}
	return nil
}

func (s *ClientService) hasDocuments(ctx context.Context, clientID uuid.UUID) (bool, error) {
	quotes, err := s.cache.Quotes.Current(ctx)
	if err != nil {
		return false, err
	}
	for _, q := range quotes {
		if q.ClientID == clientID {
			return true, nil
		}
	}
	orders, err := s.cache.Orders.Current(ctx)
	if err != nil {
		return false, err
	}
	for _, o := range orders {
		if o.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

func (s *ClientService) publish(ctx context.Context, c *client.Client) {
	defer c.ClearDomainEvents()
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, c.GetDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish client events",
			zap.String("client_id", c.ID.String()),
			zap.Error(err))
	}
}

func matchesSearch(c *client.Client, search string) bool {
	for _, field := range []string{c.Name, c.Email, c.Phone, c.ContactName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	doc := client.NormalizeDocumentNumber(search)
	return doc != "" && strings.Contains(c.DocumentNumber, doc)
}
