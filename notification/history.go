package notification

import "sync"

const DefaultHistoryCapacity = 50

// History is a bounded, most-recent-first log. Once full the oldest event is
// evicted. Only the read flag of a stored event ever changes.
type History struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{events: make([]Event, 0, capacity), capacity: capacity}
}

func (h *History) Add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.events) == h.capacity {
		h.events = h.events[:h.capacity-1]
	}

	h.events = append(h.events, Event{})
	copy(h.events[1:], h.events)
	h.events[0] = e
}

// List returns a copy, newest first.
func (h *History) List() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *History) MarkRead(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.events {
		if h.events[i].ID == id {
			h.events[i].Read = true
			return true
		}
	}
	return false
}

// Restore replaces the log with previously saved events, newest first.
func (h *History) Restore(events []Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(events) > h.capacity {
		events = events[:h.capacity]
	}

	h.events = append(h.events[:0], events...)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}
