package handler

import (
	"net/http"
	"strconv"

	"github.com/freeeve/tribes/internal/logger"
	"github.com/freeeve/tribes/internal/service"
	"github.com/freeeve/tribes/pkg/tribes"
)

// GameHandler handles game lifecycle and read endpoints.
type GameHandler struct {
	gameSvc *service.GameService
	turnSvc *service.TurnService
	kick    func(gameID string)
}

// NewGameHandler creates a GameHandler. kick, if set, is called with the id
// of every created game so bot seats start playing.
func NewGameHandler(gameSvc *service.GameService, turnSvc *service.TurnService, kick func(gameID string)) *GameHandler {
	return &GameHandler{gameSvc: gameSvc, turnSvc: turnSvc, kick: kick}
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string            `json:"name"`
		Width  int               `json:"width,omitempty"`
		Height int               `json:"height,omitempty"`
		Seed   int64             `json:"seed,omitempty"`
		Bots   map[string]string `json:"bots,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.gameSvc.CreateGame(r.Context(), service.CreateGameOptions{
		Name:   req.Name,
		Width:  req.Width,
		Height: req.Height,
		Seed:   req.Seed,
		Bots:   req.Bots,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if h.kick != nil {
		h.kick(created.Game.ID)
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	games, err := h.gameSvc.ListGames(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if games == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.gameSvc.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// GetState handles GET /api/v1/games/{id}/state. The body is the persisted
// state document.
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	gs, err := h.gameSvc.GetState(logger.WithGameID(r.Context(), gameID), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	doc, err := tribes.Save(gs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// ListTurns handles GET /api/v1/games/{id}/turns
func (h *GameHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	turns, err := h.turnSvc.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if turns == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

// Healthz handles GET /healthz
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
