// Package eventbus is an in-process publish/subscribe dispatcher for
// payment domain events. A single Bus is constructed at wiring time and
// injected wherever dispatch is needed; there is no package-level instance.
package eventbus

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/loanpost/payment-engine/internal/domain"
)

type Handler func(ctx context.Context, evt domain.Event) error

type subscription struct {
	id int
	fn Handler
}

type Bus struct {
	mu       sync.Mutex
	handlers map[domain.EventType][]subscription
	nextID   int
}

func New() *Bus {
	return &Bus{handlers: make(map[domain.EventType][]subscription)}
}

// Subscribe registers a handler for an event type and returns a function
// that removes it. Handlers for one type run in subscription order.
func (b *Bus) Subscribe(t domain.EventType, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = slices.Delete(slices.Clone(subs), i, i+1)
				return
			}
		}
	}
}

// Publish dispatches evt to every handler registered for its type, in
// subscription order, waiting for each before calling the next. The first
// handler error aborts the remaining handlers and is returned to the
// caller; callers that must not fail on dispatch (the service, the sweep)
// catch it and record the outbox row as failed.
func (b *Bus) Publish(ctx context.Context, evt domain.Event) error {
	b.mu.Lock()
	subs := slices.Clone(b.handlers[evt.Type()])
	b.mu.Unlock()

	for _, s := range subs {
		if err := s.fn(ctx, evt); err != nil {
			return fmt.Errorf("Publish: %s: %w", evt.Type(), err)
		}
	}
	return nil
}
