// Package events fans run-progress snapshots out to subscribers: the
// websocket endpoint and the CLI progress display.
package events

import (
	"sync"

	"github.com/leadsweep/leadsweep/internal/collector"
)

// Hub is a simple fan-out of progress snapshots. Slow subscribers drop
// events rather than blocking the collection loop.
type Hub struct {
	mu      sync.Mutex
	clients map[chan collector.Progress]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan collector.Progress]struct{})}
}

// Subscribe registers a new subscriber channel.
func (h *Hub) Subscribe() chan collector.Progress {
	ch := make(chan collector.Progress, 16)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(ch chan collector.Progress) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers a snapshot to every subscriber, dropping it for any
// that cannot keep up.
func (h *Hub) Publish(p collector.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- p:
		default:
		}
	}
}
