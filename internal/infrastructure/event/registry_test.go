package event

import (
	"context"
	"testing"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func noopHandler(eventTypes ...string) *HandlerFunc {
	return NewHandlerFunc(func(context.Context, shared.DomainEvent) error { return nil }, eventTypes...)
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := noopHandler()

	registry.Register(handler, client.EventTypeClientCreated, client.EventTypeClientUpdated)

	assert.Len(t, registry.GetHandlers(client.EventTypeClientCreated), 1)
	assert.Len(t, registry.GetHandlers(client.EventTypeClientUpdated), 1)
	assert.Empty(t, registry.GetHandlers(quote.EventTypeQuoteCreated))
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	registry.Register(noopHandler())

	assert.Len(t, registry.GetHandlers(client.EventTypeClientCreated), 1)
	assert.Len(t, registry.GetHandlers("anything"), 1)
}

func TestHandlerRegistry_Register_Twice(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := noopHandler()

	registry.Register(handler, client.EventTypeClientCreated)
	registry.Register(handler, client.EventTypeClientCreated)
	registry.Register(handler)

	assert.Len(t, registry.GetHandlers(client.EventTypeClientCreated), 1)
	assert.Equal(t, 1, registry.Count())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	a := noopHandler()
	b := noopHandler()

	registry.Register(a, client.EventTypeClientCreated)
	registry.Register(b, client.EventTypeClientCreated)
	registry.Register(a)
	registry.Unregister(a)

	handlers := registry.GetHandlers(client.EventTypeClientCreated)
	assert.Len(t, handlers, 1)
	assert.Same(t, b, handlers[0])
	assert.Equal(t, 1, registry.Count())
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	registry.Register(noopHandler(), client.EventTypeClientCreated, client.EventTypeClientDeleted)
	registry.Register(noopHandler(), quote.EventTypeQuoteCreated)
	registry.Register(noopHandler())

	assert.Len(t, registry.GetAllHandlers(), 3)
}

func TestHandlerRegistry_PreservesSubscriptionOrder(t *testing.T) {
	registry := NewHandlerRegistry()
	first := noopHandler()
	second := noopHandler()
	third := noopHandler()

	registry.Register(first)
	registry.Register(second, client.EventTypeClientCreated)
	registry.Register(third, quote.EventTypeQuoteCreated)
	registry.Register(third, client.EventTypeClientCreated)

	handlers := registry.GetHandlers(client.EventTypeClientCreated)
	assert.Len(t, handlers, 3)
	assert.Same(t, first, handlers[0])
	assert.Same(t, second, handlers[1])
	assert.Same(t, third, handlers[2])

	assert.Len(t, registry.GetHandlers(quote.EventTypeQuoteCreated), 2, "third keeps its first type")
}

func TestHandlerRegistry_WildcardAbsorbsTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	h := noopHandler()

	registry.Register(h)
	registry.Register(h, client.EventTypeClientCreated)

	assert.Len(t, registry.GetHandlers(quote.EventTypeQuoteCreated), 1)
}
