package sse

import (
	"net/http"
	"time"

	"github.com/mcoot/playfield/internal/feed/hub"
)

// Time between keepalive comments
const pingPeriod = 30 * time.Second

// Serve streams hub messages to one HTTP client until it disconnects
func Serve(w http.ResponseWriter, r *http.Request, h *hub.Hub, clientID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := hub.NewClient(clientID)
	if !h.Register(client) {
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}
	defer h.Unregister(client)

	// The client is registered before this is written, so nothing committed
	// after the reader sees it can be missed
	_, _ = w.Write(Format(EventConnected, []byte(`{"status":"connected"}`)))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			if _, err := w.Write(Format(msg.Event, msg.Data)); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
