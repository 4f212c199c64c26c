package event

import (
	"sync"

	"github.com/erp/bizdesk/internal/domain/shared"
)

// subscription is one handler and the event types it receives; nil types
// means every event
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s subscription) wants(eventType string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry keeps subscriptions in registration order, so handlers
// for an event always run in the order they subscribed.
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewHandlerRegistry returns an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes, or to everything when none are
// given. Registering a handler again widens its existing subscription.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(handler)
	if i < 0 {
		r.subs = append(r.subs, subscription{handler: handler, types: map[string]struct{}{}})
		i = len(r.subs) - 1
	}
	sub := &r.subs[i]
	if len(eventTypes) == 0 {
		sub.types = nil
		return
	}
	if sub.types == nil {
		return
	}
	for _, t := range eventTypes {
		sub.types[t] = struct{}{}
	}
}

// Unregister drops every subscription of handler
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(handler); i >= 0 {
		r.subs = append(r.subs[:i], r.subs[i+1:]...)
	}
}

// GetHandlers returns the handlers subscribed to eventType
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []shared.EventHandler
	for _, s := range r.subs {
		if s.wants(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}

// GetAllHandlers returns every registered handler
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]shared.EventHandler, len(r.subs))
	for i, s := range r.subs {
		out[i] = s.handler
	}
	return out
}

// Count returns the number of registered handlers
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *HandlerRegistry) indexOf(handler shared.EventHandler) int {
	for i, s := range r.subs {
		if s.handler == handler {
			return i
		}
	}
	return -1
}
