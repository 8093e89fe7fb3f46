package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/playfield/internal/api/request"
	"github.com/mcoot/playfield/internal/api/response"
	"github.com/mcoot/playfield/internal/model"
	"github.com/mcoot/playfield/internal/storage"
)

// PlayerHandler handles the players table endpoints
type PlayerHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(storage storage.Storage, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		storage: storage,
		logger:  logger,
	}
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.storage.ListPlayers(r.Context())
	if err != nil {
		h.logger.Error("list players failed", slog.Any("error", err))
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerListFromModel(players))
}

// Create handles POST /api/v1/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if strings.TrimSpace(req.ID) == "" {
		WriteError(w, NewInvalidRequestError("id is required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}

	player := req.ToModel()
	if err := h.storage.InsertPlayer(r.Context(), &player); err != nil {
		WriteError(w, err)
		return
	}

	location := "/api/v1/players/" + url.PathEscape(string(player.ID))
	response.Created(w, location, response.PlayerFromModel(&player))
}

// UpdatePosition handles PATCH /api/v1/players/{id}
func (h *PlayerHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	var req request.UpdatePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.X == nil || req.Y == nil {
		WriteError(w, NewInvalidRequestError("x and y are required"))
		return
	}

	player, err := h.storage.UpdatePlayerPosition(r.Context(), id, model.PositionUpdate{X: *req.X, Y: *req.Y})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Delete handles DELETE /api/v1/players/{id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	if err := h.storage.DeletePlayer(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
