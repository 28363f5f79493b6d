package notify

import "sync"

// Hub fans change notifications out to subscribed dashboard clients. The
// notifications carry no order payload; clients re-fetch whatever they need.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
	}
}

// Subscribe registers a client and returns its channel along with a function
// that removes the subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 8)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Broadcast delivers the message to every subscriber. A client whose buffer
// is full is skipped; the messages already queued there will make it re-fetch
// anyway.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- message:
		default:
		}
	}
}
