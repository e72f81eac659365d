package orchestrator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/rasad8686/agentcore/workflow"
)

// Handler consumes one lifecycle event.
type Handler func(event workflow.Event)

// EventBus is a synchronous publish/subscribe bus for workflow lifecycle
// events. A panicking handler is recovered and logged; it never affects
// other handlers or the emitting execution.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[workflow.EventType][]Handler
	logger   *zap.Logger
}

// NewEventBus creates an empty bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		handlers: make(map[workflow.EventType][]Handler),
		logger:   logger.With(zap.String("component", "event_bus")),
	}
}

// On subscribes a handler to one event type.
func (b *EventBus) On(eventType workflow.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit delivers the event to every subscribed handler in subscription
// order. Implements workflow.EventSink.
func (b *EventBus) Emit(event workflow.Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, event)
	}
}

func (b *EventBus) dispatch(h Handler, event workflow.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("event handler panicked",
				zap.String("event_type", string(event.Type)),
				zap.String("execution_id", event.ExecutionID),
				zap.Any("panic", rec),
			)
		}
	}()
	h(event)
}
