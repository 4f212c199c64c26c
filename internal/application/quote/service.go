package quote

import (
	"context"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultValidity is used when a quote is created without a validity date
const DefaultValidity = 30 * 24 * time.Hour

// QuoteService handles quote operations and their conversion into orders
type QuoteService struct {
	quoteRepo      quote.QuoteRepository
	orderRepo      order.OrderRepository
	clientRepo     client.ClientRepository
	cache          *cache.DataManager
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(
	quoteRepo quote.QuoteRepository,
	orderRepo order.OrderRepository,
	clientRepo client.ClientRepository,
	dm *cache.DataManager,
	logger *zap.Logger,
) *QuoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		quoteRepo:  quoteRepo,
		orderRepo:  orderRepo,
		clientRepo: clientRepo,
		cache:      dm,
		logger:     logger.Named("quote-service"),
		now:        time.Now,
	}
}

// SetEventPublisher sets the publisher that receives confirmed changes
func (s *QuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a draft quote for an existing client
func (s *QuoteService) Create(ctx context.Context, req CreateQuoteRequest) (*QuoteResponse, error) {
	c, err := s.findClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	items, err := ToLineItems(req.Items)
	if err != nil {
		return nil, err
	}

	validUntil := s.now().Add(DefaultValidity)
	if req.ValidUntil != nil {
		validUntil = *req.ValidUntil
	}
	q, err := quote.NewQuote(c.ID, c.Name, validUntil, items)
	if err != nil {
		return nil, err
	}
	q.Notes = strings.TrimSpace(req.Notes)
	if req.Discount != nil && !req.Discount.IsZero() {
		if err := q.ApplyDiscount(*req.Discount); err != nil {
			return nil, err
		}
	}

	if err := s.persist(ctx, q, cache.OpAdd); err != nil {
		return nil, err
	}
	return s.respond(q), nil
}

// GetByID returns a quote, preferring the cached snapshot
func (s *QuoteService) GetByID(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	q, ok := s.cache.Quotes.Find(id.String())
	if !ok {
		var err error
		if q, err = s.quoteRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.respond(q), nil
}

// List filters and paginates the cached quotes, newest first
func (s *QuoteService) List(ctx context.Context, filter QuoteListFilter) ([]QuoteResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	var clientID *uuid.UUID
	if filter.ClientID != "" {
		id, err := uuid.Parse(filter.ClientID)
		if err != nil {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Invalid client id")
		}
		clientID = &id
	}

	all, err := s.cache.Quotes.Current(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*quote.Quote, 0, len(all))
	for _, q := range all {
		if filter.Status != "" && string(q.Status) != filter.Status {
			continue
		}
		if clientID != nil && q.ClientID != *clientID {
			continue
		}
		if filter.Expired != nil && q.IsExpired(now) != *filter.Expired {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(q.QuoteNumber), search) &&
			!strings.Contains(strings.ToLower(q.ClientName), search) {
			continue
		}
		matched = append(matched, q)
	}

	page := shared.Paginate(matched, filter.Page, filter.PageSize)
	out := make([]QuoteResponse, len(page.Items))
	for i, q := range page.Items {
		out[i] = ToQuoteResponse(q, now)
	}
	return out, page.Total, nil
}

// UpdateItems replaces the items of a draft quote and optionally its terms
func (s *QuoteService) UpdateItems(ctx context.Context, id uuid.UUID, req UpdateQuoteItemsRequest) (*QuoteResponse, error) {
	items, err := ToLineItems(req.Items)
	if err != nil {
		return nil, err
	}
	return s.modify(ctx, id, func(q *quote.Quote) error {
		if err := q.SetItems(items); err != nil {
			return err
		}
		if req.ValidUntil == nil && req.Notes == nil {
			return nil
		}
		validUntil, notes := q.ValidUntil, q.Notes
		if req.ValidUntil != nil {
			validUntil = *req.ValidUntil
		}
		if req.Notes != nil {
			notes = strings.TrimSpace(*req.Notes)
		}
		return q.UpdateTerms(validUntil, notes)
	})
}

// ApplyDiscount sets the discount of a draft quote
func (s *QuoteService) ApplyDiscount(ctx context.Context, id uuid.UUID, req ApplyDiscountRequest) (*QuoteResponse, error) {
	return s.modify(ctx, id, func(q *quote.Quote) error {
		return q.ApplyDiscount(req.Discount)
	})
}

// Send marks a quote as delivered to the client
func (s *QuoteService) Send(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	return s.modify(ctx, id, (*quote.Quote).Send)
}

// Approve records the client's acceptance
func (s *QuoteService) Approve(ctx context.Context, id uuid.UUID) (*QuoteResponse, error) {
	return s.modify(ctx, id, (*quote.Quote).Approve)
}

// Reject records the client's refusal
func (s *QuoteService) Reject(ctx context.Context, id uuid.UUID, req RejectQuoteRequest) (*QuoteResponse, error) {
	return s.modify(ctx, id, func(q *quote.Quote) error {
		return q.Reject(req.Reason)
	})
}

// Delete removes a draft or rejected quote
func (s *QuoteService) Delete(ctx context.Context, id uuid.UUID) error {
	q, err := s.quoteRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := q.MarkDeleted(); err != nil {
		return err
	}

	m := s.cache.Quotes.Optimistic(cache.OpDelete, q, q.ID.String())
	if err := s.quoteRepo.Delete(ctx, id); err != nil {
		m.Rollback()
		return err
	}
	m.Commit()
	s.publish(ctx, q)
	return nil
}

// ConvertToOrder creates a pending order from an approved quote and links
// the two. The order is removed again when the quote cannot be updated.
func (s *QuoteService) ConvertToOrder(ctx context.Context, id uuid.UUID, req ConvertQuoteRequest) (_ *ConversionResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "convert", telemetry.SpanAttrQuoteID, id)
	defer func() { telemetry.EndSpan(span, err) }()

	q, err := s.quoteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.orderRepo.ExistsByQuote(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_CONVERTED", "Quote has already been converted to an order")
	}

	o, err := order.NewOrderFromQuote(q)
	if err != nil {
		return nil, err
	}
	if req.DueDate != nil {
		if err := o.SetDueDate(req.DueDate); err != nil {
			return nil, err
		}
	}
	if err := q.MarkConverted(o.ID); err != nil {
		return nil, err
	}

	orderChange := s.cache.Orders.Optimistic(cache.OpAdd, o, "")
	quoteChange := s.cache.Quotes.Optimistic(cache.OpUpdate, q, q.ID.String())
	rollback := func() {
		quoteChange.Rollback()
		orderChange.Rollback()
	}

	if err := s.orderRepo.Save(ctx, o); err != nil {
		rollback()
		return nil, err
	}
	if err := s.quoteRepo.Save(ctx, q); err != nil {
		rollback()
		if delErr := s.orderRepo.Delete(ctx, o.ID); delErr != nil {
			s.logger.Error("Failed to remove order after quote update failed",
				zap.String("quote_id", q.ID.String()),
				zap.String("order_id", o.ID.String()),
				zap.Error(delErr))
		}
		return nil, err
	}
	orderChange.Commit()
	quoteChange.Commit()
	telemetry.AddEvent(span, "order_created",
		telemetry.SpanAttrQuoteNumber, q.QuoteNumber,
		telemetry.SpanAttrOrderNumber, o.OrderNumber,
	)

	s.publishEvents(ctx, q.ID, o.GetDomainEvents()...)
	o.ClearDomainEvents()
	s.publish(ctx, q)

	s.logger.Info("Quote converted to order",
		zap.String("quote_number", q.QuoteNumber),
		zap.String("order_number", o.OrderNumber))

	return &ConversionResponse{
		Quote: ToQuoteResponse(q, s.now()),
		Order: ConvertedOrderResponse{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			Status:      string(o.Status),
			Total:       o.Total,
			DueDate:     o.DueDate,
		},
	}, nil
}

// modify loads a quote from the store, applies fn and persists the result
func (s *QuoteService) modify(ctx context.Context, id uuid.UUID, fn func(*quote.Quote) error) (*QuoteResponse, error) {
	q, err := s.quoteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(q); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, q, cache.OpUpdate); err != nil {
		return nil, err
	}
	return s.respond(q), nil
}

func (s *QuoteService) persist(ctx context.Context, q *quote.Quote, op cache.Operation) error {
	itemID := q.ID.String()
	if op == cache.OpAdd {
		itemID = ""
	}
	m := s.cache.Quotes.Optimistic(op, q, itemID)
	if err := s.quoteRepo.Save(ctx, q); err != nil {
		m.Rollback()
		return err
	}
	m.Commit()
	s.publish(ctx, q)
	return nil
}

func (s *QuoteService) findClient(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	if c, ok := s.cache.Clients.Find(id.String()); ok {
		return c, nil
	}
	c, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *QuoteService) respond(q *quote.Quote) *QuoteResponse {
	response := ToQuoteResponse(q, s.now())
	return &response
}

func (s *QuoteService) publish(ctx context.Context, q *quote.Quote) {
	s.publishEvents(ctx, q.ID, q.GetDomainEvents()...)
	q.ClearDomainEvents()
}

func (s *QuoteService) publishEvents(ctx context.Context, quoteID uuid.UUID, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish quote events",
			zap.String("quote_id", quoteID.String()),
			zap.Error(err))
	}
}
