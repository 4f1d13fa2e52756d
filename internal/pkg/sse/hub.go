package sse

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 16

// Event is one message for a single recipient's stream.
type Event struct {
	UserID string
	Name   string
	Data   interface{}
}

// Hub fans events out to the open streams of each user. Publishing never
// blocks: a stream whose buffer is full drops the event.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[chan Event]struct{}
	buffer  int
	dropped atomic.Int64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		streams: make(map[string]map[chan Event]struct{}),
		buffer:  buffer,
	}
}

// Subscribe opens a stream for userID. The returned cancel func closes the
// channel and is safe to call more than once.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.streams[userID] == nil {
		h.streams[userID] = make(map[chan Event]struct{})
	}
	h.streams[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.streams[userID]; ok {
				if _, open := subs[ch]; open {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(h.streams, userID)
				}
			}
		})
	}

	return ch, cancel
}

// Publish delivers e to every stream of e.UserID and returns how many
// received it.
func (h *Hub) Publish(e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.streams[e.UserID] {
		select {
		case ch <- e:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// Connections returns the number of open streams for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID])
}

// Dropped returns how many events were discarded on full buffers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, subs := range h.streams {
		for ch := range subs {
			close(ch)
		}
		delete(h.streams, userID)
	}
}
