// Package events is the best-effort notification fabric. Publishing never
// blocks the mutating operation that triggered it and never propagates an
// error or panic back to the caller.
package events

import (
	"log/slog"
	"sync"
)

// Event types emitted by the affective core.
const (
	MoodChanged       = "mood.changed"
	MoodSet           = "mood.set"
	ImprintCreated    = "imprint.created"
	ImprintArchived   = "imprint.archived"
	TemperamentAdjust = "temperament.adjusted"
	TemperamentReset  = "temperament.reset"
)

// Notifier publishes events to interested subscribers, best-effort.
type Notifier interface {
	Publish(eventType string, payload map[string]any)
}

// Handler receives a published event.
type Handler func(eventType string, payload map[string]any)

// Bus is an in-process Notifier with synchronous, panic-isolated delivery.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]Handler
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]Handler),
		logger: logger,
	}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], h)
}

// Publish delivers the event to every subscriber. A panicking subscriber is
// recovered and logged; it never aborts the publishing operation.
func (b *Bus) Publish(eventType string, payload map[string]any) {
	b.mu.RLock()
	handlers := b.subs[eventType]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(eventType, payload, h)
	}
}

func (b *Bus) deliver(eventType string, payload map[string]any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event subscriber panicked", "event", eventType, "panic", r)
		}
	}()
	h(eventType, payload)
}

// Nop is a Notifier that discards everything.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(string, map[string]any) {}
