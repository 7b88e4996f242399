package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/shared"
)

// wildcard subscribes a handler to every event type
const wildcard = "*"

// InMemoryEventBus is a synchronous in-process event bus. Handlers run in
// the publisher's goroutine; a failing handler is logged and does not stop
// the others.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	log      *zap.Logger
}

// NewInMemoryEventBus creates an in-memory event bus
func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandler),
		log:      log,
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

// Subscribe registers a handler. When no event types are given the
// handler's own EventTypes are used; an empty list there subscribes the
// handler to all events.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	if len(eventTypes) == 0 {
		eventTypes = []string{wildcard}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, et := range eventTypes {
		b.handlers[et] = append(b.handlers[et], handler)
	}
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for et, hs := range b.handlers {
		kept := hs[:0]
		for _, h := range hs {
			if h != handler {
				kept = append(kept, h)
			}
		}
		b.handlers[et] = kept
	}
}

// Publish delivers each event to every handler subscribed to its type
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		b.mu.RLock()
		handlers := make([]shared.EventHandler, 0,
			len(b.handlers[ev.EventType()])+len(b.handlers[wildcard]))
		handlers = append(handlers, b.handlers[ev.EventType()]...)
		handlers = append(handlers, b.handlers[wildcard]...)
		b.mu.RUnlock()

		for _, h := range handlers {
			if err := h.Handle(ctx, ev); err != nil {
				b.log.Error("event handler failed",
					zap.String("event_type", ev.EventType()),
					zap.String("event_id", ev.EventID().String()),
					zap.Error(err))
			}
		}
	}
	return nil
}
