package events

import (
	"context"
	"sync"
)

// Listener handles an event delivered on the bus.
type Listener func(ctx context.Context, ev Event)

// Bus dispatches events synchronously to in-process listeners.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    Logger
}

// NewBus creates an empty bus.
func NewBus(logger Logger) *Bus {
	return &Bus{listeners: make(map[string][]Listener), logger: logger}
}

// Subscribe registers fn for eventType. An empty type receives every event.
func (b *Bus) Subscribe(eventType string, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], fn)
}

func (b *Bus) Notify(ctx context.Context, ev Event) {
	b.mu.RLock()
	targets := make([]Listener, 0, len(b.listeners[ev.Type])+len(b.listeners[""]))
	targets = append(targets, b.listeners[ev.Type]...)
	targets = append(targets, b.listeners[""]...)
	b.mu.RUnlock()

	for _, fn := range targets {
		b.call(ctx, fn, ev)
	}
}

func (b *Bus) call(ctx context.Context, fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("payouts event listener panic type=%s payout=%d: %v", ev.Type, ev.PayoutID, r)
		}
	}()
	fn(ctx, ev)
}
