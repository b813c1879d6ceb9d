package event

import (
	"sync"

	"github.com/erp/posting/internal/domain/shared"
)

// HandlerRegistry manages event handler registrations
type HandlerRegistry struct {
	mu        sync.RWMutex
	handlers  map[string][]shared.EventHandler // eventType -> handlers
	wildcard  []shared.EventHandler
	consumers map[string]shared.NamedEventHandler
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers:  make(map[string][]shared.EventHandler),
		wildcard:  make([]shared.EventHandler, 0),
		consumers: make(map[string]shared.NamedEventHandler),
	}
}

// Register adds a handler for specific event types.
// If no event types are provided, the handler receives all events.
// Named handlers are also indexed by consumer name.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if named, ok := handler.(shared.NamedEventHandler); ok {
		r.consumers[named.ConsumerName()] = named
	}

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, eventType := range eventTypes {
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
}

// Unregister removes a handler from all event types
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, handler)
	for eventType, handlers := range r.handlers {
		r.handlers[eventType] = removeHandler(handlers, handler)
		if len(r.handlers[eventType]) == 0 {
			delete(r.handlers, eventType)
		}
	}
	if named, ok := handler.(shared.NamedEventHandler); ok {
		if r.consumers[named.ConsumerName()] == named {
			delete(r.consumers, named.ConsumerName())
		}
	}
}

// GetHandlers returns the type-specific and wildcard handlers for eventType
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeHandlers := r.handlers[eventType]
	result := make([]shared.EventHandler, 0, len(typeHandlers)+len(r.wildcard))
	result = append(result, typeHandlers...)
	result = append(result, r.wildcard...)
	return result
}

// FindConsumer returns the handler registered under a consumer name
func (r *HandlerRegistry) FindConsumer(name string) (shared.NamedEventHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.consumers[name]
	return h, ok
}

// ConsumerNames returns the names of all registered consumers
func (r *HandlerRegistry) ConsumerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.consumers))
	for name := range r.consumers {
		names = append(names, name)
	}
	return names
}

func removeHandler(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	result := make([]shared.EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}
