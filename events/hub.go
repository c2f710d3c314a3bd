package events

import (
	"sync"
)

// Lifecycle events published by the reconciliation engine for UI consumption.
const (
	EventSyncStart    = "sync-start"
	EventSyncComplete = "sync-complete"
	EventSyncError    = "sync-error"
)

type Event struct {
	Type           string `json:"type"`
	ProcessedCount int    `json:"processed_count,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Hub fans lifecycle events out to in-process subscribers. Delivery is
// non-blocking: a subscriber that stops draining its channel loses events
// rather than stalling a sync pass.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
