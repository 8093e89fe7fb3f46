package handler

import (
	"net/http"

	"github.com/mcoot/playfield/internal/api/response"
	"github.com/mcoot/playfield/internal/feed/hub"
)

// HealthHandler reports liveness
type HealthHandler struct {
	storageType string
	hub         *hub.Hub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storageType string, h *hub.Hub) *HealthHandler {
	return &HealthHandler{storageType: storageType, hub: h}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:      "ok",
		Storage:     h.storageType,
		FeedClients: h.hub.ClientCount(),
	})
}
