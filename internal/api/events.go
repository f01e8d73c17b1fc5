package api

import (
	"sync"

	"codeberg.org/streamapps/appgen/internal/generator"
)

const subscriberBuffer = 16

// RunEvent reports a generation run changing state
type RunEvent struct {
	RunID    string              `json:"run_id,omitempty"`
	App      string              `json:"app"`
	Version  string              `json:"version"`
	Status   string              `json:"status"`
	Projects []generator.Project `json:"projects,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// RunEventHub fans run events out to SSE subscribers. Slow subscribers miss
// events rather than stall a generation.
type RunEventHub struct {
	mu          sync.RWMutex
	subscribers map[chan RunEvent]struct{}
	closed      bool
}

// NewRunEventHub creates an empty hub
func NewRunEventHub() *RunEventHub {
	return &RunEventHub{
		subscribers: make(map[chan RunEvent]struct{}),
	}
}

// Subscribe registers a subscriber. After Close the returned channel is
// already closed.
func (h *RunEventHub) Subscribe() chan RunEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan RunEvent, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscription channel
func (h *RunEventHub) Unsubscribe(ch chan RunEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[ch]; !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)
}

// Broadcast sends event to every subscriber with room in its buffer and
// returns how many subscribers missed it.
func (h *RunEventHub) Broadcast(event RunEvent) (dropped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	return dropped
}

// Close ends every subscription so streaming handlers return
func (h *RunEventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers
func (h *RunEventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
