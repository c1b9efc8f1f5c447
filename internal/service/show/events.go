package show

import (
	"sync"

	"showmatch/pkg/showdto"
)

const subscriberBuffer = 16

// Hub fans session events out to websocket subscribers. Publish never
// blocks: a subscriber that cannot keep up loses events rather than stalling
// an advance.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan showdto.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan showdto.Event]struct{})}
}

// Subscribe registers a listener for one session. The returned cancel
// function must be called exactly once; it closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan showdto.Event, func()) {
	ch := make(chan showdto.Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan showdto.Event]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

func (h *Hub) Publish(sessionID string, ev showdto.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
