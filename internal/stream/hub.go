package stream

import "sync"

// Event is what goes over the content stream to connected viewers.
type Event struct {
	Type     string `json:"type"`
	MomentID uint64 `json:"moment_id,omitempty"`
}

// subscriberBuffer is each viewer's private queue. A viewer that falls this
// far behind is dropped rather than allowed to stall the publisher.
const subscriberBuffer = 16

// Hub is a single-topic broadcast: one producer, one owned channel per
// subscriber. Delivery is at-most-once and best-effort; there is no
// history; late subscribers re-fetch the visible set instead.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new viewer. The returned cancel func is idempotent
// and must be called when the viewer disconnects.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish fans the event out to every subscriber. A full subscriber is
// dropped on the spot; one stuck viewer must not affect the rest.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Subscribers reports the current viewer count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
