package handler

import (
	"net/http"

	"github.com/freeeve/tribes/internal/auth"
	"github.com/freeeve/tribes/internal/middleware"
)

// NewRouter wires every endpoint behind the global middleware. Action routes
// require a seat token; the WebSocket authenticates via its query parameter.
func NewRouter(games *GameHandler, actions *ActionHandler, ws *WSHandler, jwtMgr *auth.JWTManager) http.Handler {
	mux := http.NewServeMux()
	seatMw := auth.Middleware(jwtMgr)

	mux.HandleFunc("GET /healthz", Healthz)

	mux.HandleFunc("POST /api/v1/games", games.CreateGame)
	mux.HandleFunc("GET /api/v1/games", games.ListGames)
	mux.HandleFunc("GET /api/v1/games/{id}", games.GetGame)
	mux.HandleFunc("GET /api/v1/games/{id}/state", games.GetState)
	mux.HandleFunc("GET /api/v1/games/{id}/turns", games.ListTurns)
	mux.Handle("POST /api/v1/games/{id}/actions", seatMw(http.HandlerFunc(actions.SubmitAction)))
	mux.Handle("POST /api/v1/games/{id}/actions/validate", seatMw(http.HandlerFunc(actions.ValidateAction)))

	mux.HandleFunc("GET /api/v1/ws", ws.ServeWS)

	return middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)
}
