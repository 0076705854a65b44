package selection

import (
	"sort"
	"sync"
)

// Interaction is a discrete user event, such as a keypress or a command, with
// the UI element it was aimed at.
type Interaction struct {
	Target string
}

// InteractionBus fans interactions out to subscribers.
type InteractionBus struct {
	mu       sync.Mutex
	handlers map[int]func(Interaction)
	nextID   int
}

func NewInteractionBus() *InteractionBus {
	return &InteractionBus{handlers: make(map[int]func(Interaction))}
}

// Subscribe registers fn and returns an idempotent unsubscribe func.
func (b *InteractionBus) Subscribe(fn func(Interaction)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers i to every current subscriber, outside the bus lock.
func (b *InteractionBus) Publish(i Interaction) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(Interaction), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(i)
	}
}

// Subscribers reports how many handlers are registered.
func (b *InteractionBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
