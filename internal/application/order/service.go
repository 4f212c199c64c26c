package order

import (
	"context"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles the lifecycle of orders. Orders are created by
// converting approved quotes.
type OrderService struct {
	orderRepo      order.OrderRepository
	cache          *cache.DataManager
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo order.OrderRepository, dm *cache.DataManager, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo: orderRepo,
		cache:     dm,
		logger:    logger.Named("order-service"),
		now:       time.Now,
	}
}

// SetEventPublisher sets the publisher that receives confirmed changes
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByID returns an order, preferring the cached snapshot
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, ok := s.cache.Orders.Find(id.String())
	if !ok {
		var err error
		if o, err = s.orderRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.respond(o), nil
}

// List filters and paginates the cached orders, newest first
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
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

	all, err := s.cache.Orders.Current(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*order.Order, 0, len(all))
	for _, o := range all {
		switch {
		case filter.Status != "" && string(o.Status) != filter.Status:
			continue
		case clientID != nil && o.ClientID != *clientID:
			continue
		case filter.Overdue != nil && o.IsOverdue(now) != *filter.Overdue:
			continue
		case search != "" &&
			!strings.Contains(strings.ToLower(o.OrderNumber), search) &&
			!strings.Contains(strings.ToLower(o.ClientName), search):
			continue
		}
		matched = append(matched, o)
	}

	page := shared.Paginate(matched, filter.Page, filter.PageSize)
	out := make([]OrderResponse, len(page.Items))
	for i, o := range page.Items {
		out[i] = ToOrderResponse(o, now)
	}
	return out, page.Total, nil
}

// Start moves a pending order into progress
func (s *OrderService) Start(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.modify(ctx, id, (*order.Order).Start)
}

// Complete finishes an in-progress order
func (s *OrderService) Complete(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.modify(ctx, id, (*order.Order).Complete)
}

// Cancel cancels an unfinished order
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	return s.modify(ctx, id, func(o *order.Order) error {
		return o.Cancel(req.Reason)
	})
}

// Delete removes a completed or cancelled order
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := o.MarkDeleted(); err != nil {
		return err
	}

	m := s.cache.Orders.Optimistic(cache.OpDelete, o, o.ID.String())
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		m.Rollback()
		return err
	}
	m.Commit()
	s.publish(ctx, o)
	return nil
}

func (s *OrderService) modify(ctx context.Context, id uuid.UUID, fn func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}

	m := s.cache.Orders.Optimistic(cache.OpUpdate, o, o.ID.String())
	if err := s.orderRepo.Save(ctx, o); err != nil {
		m.Rollback()
		return nil, err
	}
	m.Commit()
	s.publish(ctx, o)
	return s.respond(o), nil
}

func (s *OrderService) respond(o *order.Order) *OrderResponse {
	response := ToOrderResponse(o, s.now())
	return &response
}

func (s *OrderService) publish(ctx context.Context, o *order.Order) {
	defer o.ClearDomainEvents()
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
}
