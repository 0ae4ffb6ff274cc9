// Package events provides the in-process pub/sub hub feeding the WebSocket
// stream.
package events

import (
	"sync"
	"time"
)

// Event types published by the refresh pipeline.
const (
	TypePanelUpdated   = "panel_updated"
	TypeNewsUpdated    = "news_updated"
	TypeHeatmapUpdated = "heatmap_updated"
)

// Event describes one refresh outcome.
type Event struct {
	Type   string    `json:"type"`
	Panel  string    `json:"panel,omitempty"`
	Source string    `json:"source,omitempty"`
	Price  float64   `json:"price,omitempty"`
	Count  int       `json:"count,omitempty"`
	At     time.Time `json:"at"`
}

const subscriberBuffer = 16

// Hub fans events out to subscribers. Publishing never blocks; slow
// subscribers drop events instead of stalling the refresh pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

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

// Publish delivers the event to every subscriber with room in its buffer.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
