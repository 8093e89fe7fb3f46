package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/playfield/internal/api/handler"
	"github.com/mcoot/playfield/internal/api/middleware"
	"github.com/mcoot/playfield/internal/feed/hub"
	"github.com/mcoot/playfield/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Storage     storage.Storage
	StorageType string
	Hub         *hub.Hub
	RateLimit   middleware.RateLimitConfig
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.Storage, cfg.Logger)
	feedHandler := handler.NewFeedHandler(cfg.Hub, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.StorageType, cfg.Hub)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Reads and the change feed
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/events", feedHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/players/ws", feedHandler.Websocket).Methods(http.MethodGet)

	// Writes are rate limited per remote address
	writes := api.PathPrefix("/players").Subrouter()
	writes.Use(rateLimiter.Middleware)
	writes.HandleFunc("", playerHandler.Create).Methods(http.MethodPost)
	writes.HandleFunc("/{id}", playerHandler.UpdatePosition).Methods(http.MethodPatch)
	writes.HandleFunc("/{id}", playerHandler.Delete).Methods(http.MethodDelete)

	return r
}
