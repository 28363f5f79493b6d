package events

import (
	"fmt"
	"net/http"
	"time"
)

const heartbeatInterval = 30 * time.Second

type hub interface {
	Subscribe() (<-chan []byte, func())
}

// Stream pushes change notifications to the dashboard as server sent events.
// An event only says that something changed; the client re-fetches the data
// it cares about.
func Stream(w http.ResponseWriter, r *http.Request, h hub) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// The heartbeat keeps proxies from closing idle streams.
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case message, open := <-messages:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: changed\ndata: %s\n\n", message); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
