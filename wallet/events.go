package wallet

import (
	"sync"

	"github.com/google/uuid"

	"github.com/turtlecoin/walletd-sync/modules"
)

// EventBus is a small typed pub/sub: one buffered channel per event name.
// Subscribe spawns one goroutine per handler reading its channel; handlers
// must not call Backend.Start/Stop re-entrantly - spec.md §9.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[modules.EventName]map[string]chan interface{}
	done        map[string]chan struct{}
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[modules.EventName]map[string]chan interface{}),
		done:        make(map[string]chan struct{}),
	}
}

// Subscribe registers handler for every occurrence of name, returning an
// unsubscribe function. The subscription id is a uuid rather than an
// incrementing counter so unsubscribing after a bus restart can never
// collide with a stale id.
func (b *EventBus) Subscribe(name modules.EventName, handler func(interface{})) (unsubscribe func()) {
	id := uuid.New().String()
	ch := make(chan interface{}, 64)
	done := make(chan struct{})

	b.mu.Lock()
	if b.subscribers[name] == nil {
		b.subscribers[name] = make(map[string]chan interface{})
	}
	b.subscribers[name][id] = ch
	b.done[id] = done
	b.mu.Unlock()

	go func() {
		for {
			select {
			case ev := <-ch:
				handler(ev)
			case <-done:
				return
			}
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.subscribers[name]; ok {
			delete(subs, id)
		}
		if d, ok := b.done[id]; ok {
			close(d)
			delete(b.done, id)
		}
	}
}

// Emit delivers ev to every subscriber of name, in subscription order is
// not guaranteed across different subscribers, but delivery to a single
// subscriber's handler always preserves the order Emit was called in.
func (b *EventBus) Emit(name modules.EventName, ev interface{}) {
	b.mu.Lock()
	subs := make([]chan interface{}, 0, len(b.subscribers[name]))
	for _, ch := range b.subscribers[name] {
		subs = append(subs, ch)
	}
	b.mu.Unlock()

	for _, ch := range subs {
		ch <- ev
	}
}
