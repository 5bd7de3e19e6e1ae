package handler

import (
	"io"
	"net/http"

	"github.com/freeeve/tribes/internal/auth"
	"github.com/freeeve/tribes/internal/logger"
	"github.com/freeeve/tribes/internal/service"
	"github.com/freeeve/tribes/pkg/tribes"
)

const maxActionBytes = 64 << 10

// ActionHandler handles action submission and validation for a seat.
type ActionHandler struct {
	turnSvc *service.TurnService
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(turnSvc *service.TurnService) *ActionHandler {
	return &ActionHandler{turnSvc: turnSvc}
}

// seatFor returns the caller's tribe in the game named by the path, writing
// an error response when the token belongs to another game.
func seatFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	seat, ok := auth.SeatFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing seat")
		return "", false
	}
	if seat.GameID != r.PathValue("id") {
		writeError(w, http.StatusForbidden, "token is for another game")
		return "", false
	}
	return seat.Tribe, true
}

// readAction decodes the body as an action request. An undecodable body is
// reported like any other malformed action.
func readAction(w http.ResponseWriter, r *http.Request) (tribes.ActionRequest, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActionBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return tribes.ActionRequest{}, false
	}
	req, err := tribes.DecodeAction(body)
	if err != nil {
		writeInvalidAction(w, err.Error())
		return tribes.ActionRequest{}, false
	}
	return req, true
}

// SubmitAction handles POST /api/v1/games/{id}/actions
func (h *ActionHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	tribe, ok := seatFor(w, r)
	if !ok {
		return
	}
	req, ok := readAction(w, r)
	if !ok {
		return
	}
	gameID := r.PathValue("id")

	diff, err := h.turnSvc.Submit(logger.WithGameID(r.Context(), gameID), gameID, tribe, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// ValidateAction handles POST /api/v1/games/{id}/actions/validate
func (h *ActionHandler) ValidateAction(w http.ResponseWriter, r *http.Request) {
	tribe, ok := seatFor(w, r)
	if !ok {
		return
	}
	req, ok := readAction(w, r)
	if !ok {
		return
	}

	v, err := h.turnSvc.ValidateOnly(r.Context(), r.PathValue("id"), tribe, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
