// Package bus provides a minimal in-process event bus.
//
// Dispatch is synchronous: Emit invokes every handler registered for the
// event name before returning. Handlers for the same event run in
// registration order; there is no ordering guarantee across distinct event
// names. A handler that needs to do slow work should hand off to its own
// goroutine.
package bus

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives the payload passed to Emit.
type Handler func(payload interface{})

// Bus routes named events to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.SugaredLogger
}

// New creates an event bus. logger may be nil for silent operation.
func New(logger *zap.SugaredLogger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// On registers a handler for the given event name.
func (b *Bus) On(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit dispatches the payload to every handler registered for event.
// Handlers run synchronously on the caller's goroutine.
func (b *Bus) Emit(event string, payload interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.RUnlock()

	if b.logger != nil && len(handlers) > 0 {
		b.logger.Debugw("Dispatching event", "event", event, "handlers", len(handlers))
	}

	for _, h := range handlers {
		h(payload)
	}
}

// HandlerCount returns the number of handlers registered for event.
// Primarily useful for tests.
func (b *Bus) HandlerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
