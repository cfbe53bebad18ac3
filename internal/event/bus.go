package event

import (
	"context"
	"log"
	"sync"
)

// Handler processes one published event. Handlers must tolerate being called
// in any order relative to each other; the bus guarantees nothing about
// ordering across handlers.
type Handler func(ctx context.Context, e Event)

// Bus is a small in-process publish/subscribe fan-out. Each subscription is
// an independent registration; a panicking handler never takes down the
// publisher or the other handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all events. Handlers filter by type
// themselves via a type switch on the closed Event union.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers e to every registered handler synchronously.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("event handler panicked on %s: %v", e.Type(), r)
				}
			}()
			h(ctx, e)
		}()
	}
}
