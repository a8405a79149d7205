// Package realtime fans table change events out to in-process subscribers.
package realtime

import (
	"sync"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// DefaultBuffer is the channel capacity of each subscription.
const DefaultBuffer = 32

// Hub is an in-process change feed. Publish never blocks: an event is
// dropped for a subscriber whose channel is full.
type Hub struct {
	mu     sync.RWMutex
	subs   map[models.Table]map[int]chan models.ChangeEvent
	next   int
	buffer int
	closed bool
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[models.Table]map[int]chan models.ChangeEvent),
		buffer: buffer,
	}
}

// Subscribe registers for events on table. The returned function removes
// the subscription and closes the channel; it may be called more than once.
func (h *Hub) Subscribe(table models.Table) (<-chan models.ChangeEvent, func()) {
	ch := make(chan models.ChangeEvent, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	if h.subs[table] == nil {
		h.subs[table] = make(map[int]chan models.ChangeEvent)
	}
	h.subs[table][id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(table, id) })
	}
}

func (h *Hub) remove(table models.Table, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[table][id]; ok {
		delete(h.subs[table], id)
		close(ch)
	}
}

// Publish delivers ev to every subscriber of ev.Table.
func (h *Hub) Publish(ev models.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[ev.Table] {
		select {
		case ch <- ev:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribers returns the number of live subscriptions on table.
func (h *Hub) Subscribers(table models.Table) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}

// Close closes every subscription. Later subscriptions receive a closed
// channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for table, subs := range h.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(h.subs, table)
	}
}
