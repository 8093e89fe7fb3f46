package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/playfield/internal/feed/hub"
	"github.com/mcoot/playfield/internal/feed/sse"
	"github.com/mcoot/playfield/internal/feed/ws"
)

// FeedHandler serves the players change feed
type FeedHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(h *hub.Hub, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		hub:    h,
		logger: logger,
	}
}

// Events handles GET /api/v1/players/events
func (h *FeedHandler) Events(w http.ResponseWriter, r *http.Request) {
	sse.Serve(w, r, h.hub, r.RemoteAddr)
}

// Websocket handles GET /api/v1/players/ws
func (h *FeedHandler) Websocket(w http.ResponseWriter, r *http.Request) {
	ws.Serve(w, r, h.hub, r.RemoteAddr, h.logger)
}
