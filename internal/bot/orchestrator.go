package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/pkg/tribes"
)

// Orchestrator plays the local seats of a game hosted by a remote server.
// Seats not listed in Local are left to the server's own bots.
type Orchestrator struct {
	baseURL  string
	local    map[tribes.Tribe]Strategy
	server   map[string]string
	maxTurns int
	poll     time.Duration
	players  map[tribes.Tribe]*Client
}

// OrchestratorConfig describes a remote game.
type OrchestratorConfig struct {
	BaseURL  string
	Local    map[tribes.Tribe]Strategy
	Server   map[tribes.Tribe]string // strategies the server runs itself
	MaxTurns int
	Poll     time.Duration
}

// RemoteResult is the outcome of a remote game.
type RemoteResult struct {
	GameID    string
	Winner    tribes.Tribe
	Turns     int
	Submitted int
	Rejected  int
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	server := make(map[string]string, len(cfg.Server))
	for t, s := range cfg.Server {
		server[string(t)] = s
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 2 * time.Second
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 200
	}
	return &Orchestrator{
		baseURL:  cfg.BaseURL,
		local:    cfg.Local,
		server:   server,
		maxTurns: cfg.MaxTurns,
		poll:     cfg.Poll,
		players:  make(map[tribes.Tribe]*Client),
	}
}

// Run creates a game, connects every local seat and plays until the game
// ends, the turn cap is reached or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, name string, seed int64) (*RemoteResult, error) {
	if len(o.local) == 0 {
		return nil, errors.New("no local seats")
	}
	created, err := NewClient("host", o.baseURL, "").CreateGame(name, seed, o.server)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	gameID := created.Game.ID
	log.Info().Str("gameId", gameID).Int("localSeats", len(o.local)).Msg("Remote game created")

	var watcher *Client
	for tribe, s := range o.local {
		token, ok := created.Seats[string(tribe)]
		if !ok {
			return nil, fmt.Errorf("no seat token for %s", tribe)
		}
		c := NewClient(string(tribe)+"/"+s.Name(), o.baseURL, token)
		o.players[tribe] = c
		if watcher == nil {
			watcher = c
		}
	}

	if err := watcher.ConnectWS(); err != nil {
		return nil, fmt.Errorf("ws connect: %w", err)
	}
	defer watcher.CloseWS()
	if err := watcher.SubscribeGame(gameID); err != nil {
		return nil, fmt.Errorf("ws subscribe: %w", err)
	}

	result := &RemoteResult{GameID: gameID}
	return result, o.playLoop(ctx, gameID, watcher, result)
}

// playLoop acts whenever a local seat is current and otherwise waits for the
// server to report progress.
func (o *Orchestrator) playLoop(ctx context.Context, gameID string, watcher *Client, result *RemoteResult) error {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping bots")
			return ctx.Err()
		default:
		}

		gs, err := watcher.GetState(gameID)
		if err != nil {
			return fmt.Errorf("get state: %w", err)
		}
		result.Turns = gs.Turn
		if gs.Status == tribes.StatusFinished {
			result.Winner, _ = tribes.Winner(gs)
			log.Info().Str("gameId", gameID).Str("winner", string(result.Winner)).Int("turn", gs.Turn).Msg("Game ended")
			return nil
		}
		if gs.Turn > o.maxTurns {
			log.Info().Str("gameId", gameID).Int("turn", gs.Turn).Msg("Turn cap reached")
			return nil
		}

		s, ok := o.local[gs.CurrentTribe]
		if !ok {
			o.waitForProgress(ctx, watcher)
			continue
		}
		if err := o.act(ctx, gameID, gs, s, result); err != nil {
			return err
		}
	}
}

// act decides and submits one action for the current tribe, falling back to
// the first legal action when the strategy's choice is rejected.
func (o *Orchestrator) act(ctx context.Context, gameID string, gs *tribes.GameState, s Strategy, result *RemoteResult) error {
	tribe := gs.CurrentTribe
	c := o.players[tribe]

	req, err := s.Decide(ctx, gs, tribe)
	if err == nil {
		_, err = c.SubmitAction(gameID, req)
		result.Submitted++
	}
	if err == nil {
		return nil
	}
	if !IsRejected(err) && !errors.Is(err, tribes.ErrMalformedAction) {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}
	result.Rejected++
	log.Warn().Err(err).Str("bot", c.Name()).Int("turn", gs.Turn).Msg("Action rejected, falling back")

	req, err = FirstLegal(gs, tribe)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}
	if _, err := c.SubmitAction(gameID, req); err != nil {
		return fmt.Errorf("%s fallback: %w", c.Name(), err)
	}
	result.Submitted++
	return nil
}

// waitForProgress blocks until an action or game-over event arrives or the
// poll interval elapses.
func (o *Orchestrator) waitForProgress(ctx context.Context, c *Client) {
	timeout := time.After(o.poll)
	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout:
			return
		case event, ok := <-c.Events():
			if !ok {
				// Connection gone; fall back to polling.
				select {
				case <-ctx.Done():
				case <-timeout:
				}
				return
			}
			switch event.Type {
			case "action_applied", "game_over":
				if event.Type == "game_over" {
					var data struct {
						Winner string `json:"winner"`
					}
					json.Unmarshal(event.Data, &data)
					log.Debug().Str("winner", data.Winner).Msg("Game over event")
				}
				return
			default:
				log.Debug().Str("type", event.Type).Msg("Ignoring event")
			}
		}
	}
}
