package event

import (
	"context"

	"github.com/erp/bizdesk/internal/domain/shared"
)

// HandlerFunc adapts a function to shared.EventHandler
type HandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, event shared.DomainEvent) error
}

// NewHandlerFunc builds a handler for the given event types; no types means all events
func NewHandlerFunc(fn func(ctx context.Context, event shared.DomainEvent) error, eventTypes ...string) *HandlerFunc {
	return &HandlerFunc{Types: eventTypes, Fn: fn}
}

// Handle calls the wrapped function
func (h *HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.Fn(ctx, event)
}

// EventTypes returns the subscribed event types
func (h *HandlerFunc) EventTypes() []string {
	return h.Types
}
