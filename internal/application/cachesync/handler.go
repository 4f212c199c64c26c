package cachesync

import (
	"context"
	"fmt"
	"slices"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/company"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// affected maps each domain event type to the cached collections it changes
var affected = map[string][]cache.Collection{
	client.EventTypeClientCreated:     {cache.CollectionClients},
	client.EventTypeClientUpdated:     {cache.CollectionClients},
	client.EventTypeClientDeleted:     {cache.CollectionClients},
	quote.EventTypeQuoteCreated:       {cache.CollectionQuotes},
	quote.EventTypeQuoteUpdated:       {cache.CollectionQuotes},
	quote.EventTypeQuoteStatusChanged: {cache.CollectionQuotes},
	quote.EventTypeQuoteConverted:     {cache.CollectionQuotes, cache.CollectionOrders},
	quote.EventTypeQuoteDeleted:       {cache.CollectionQuotes},
	order.EventTypeOrderCreated:       {cache.CollectionOrders},
	order.EventTypeOrderStatusChanged: {cache.CollectionOrders},
	order.EventTypeOrderDeleted:       {cache.CollectionOrders},
	company.EventTypeSettingsUpdated:  {cache.CollectionCompanySettings},
}

// CollectionsFor returns the collections changed by an event type
func CollectionsFor(eventType string) []cache.Collection {
	return slices.Clone(affected[eventType])
}

// Announcer tells other instances that collections changed here
type Announcer interface {
	Broadcast(ctx context.Context, cs ...cache.Collection) error
}

// InvalidationHandler reloads the collections a confirmed write changed and
// announces them to the other instances.
type InvalidationHandler struct {
	dm        *cache.DataManager
	announcer Announcer
	logger    *zap.Logger
}

// NewInvalidationHandler creates the handler. announcer may be nil for a
// single instance.
func NewInvalidationHandler(dm *cache.DataManager, announcer Announcer, logger *zap.Logger) *InvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvalidationHandler{
		dm:        dm,
		announcer: announcer,
		logger:    logger.Named("cache-sync"),
	}
}

// EventTypes returns the event types this handler is interested in
func (h *InvalidationHandler) EventTypes() []string {
	types := make([]string, 0, len(affected))
	for t := range affected {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Handle reloads the affected collections. A failed announcement is logged
// and does not fail the write that produced the event.
func (h *InvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	cs := affected[event.EventType()]
	if len(cs) == 0 {
		return nil
	}

	if _, err := h.dm.InvalidateMultiple(ctx, cs...); err != nil {
		return fmt.Errorf("cache sync: reload after %s: %w", event.EventType(), err)
	}
	h.logger.Debug("Reloaded collections",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Any("collections", cs))

	if h.announcer == nil {
		return nil
	}
	if err := h.announcer.Broadcast(ctx, cs...); err != nil {
		h.logger.Warn("Failed to announce cache invalidation",
			zap.String("event_type", event.EventType()),
			zap.Any("collections", cs),
			zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*InvalidationHandler)(nil)
