package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/bot"
	"github.com/freeeve/tribes/internal/model"
	"github.com/freeeve/tribes/internal/repository"
	"github.com/freeeve/tribes/pkg/tribes"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGameFinished  = errors.New("game is finished")
	ErrInvalidAction = errors.New("invalid action")
	ErrNotYourSeat   = errors.New("seat does not control this tribe")
	ErrGameBusy      = errors.New("game is busy, retry")
	ErrInvalidSeat   = errors.New("invalid seat configuration")
	ErrInvalidMap    = errors.New("invalid map options")
)

// SeatTokenIssuer mints the bearer token for one seat of a game.
type SeatTokenIssuer interface {
	IssueSeatToken(gameID, tribe string) (string, error)
}

// CreateGameOptions configures a new game. Bots maps a tribe name to the
// strategy that plays it; unnamed tribes are human seats.
type CreateGameOptions struct {
	Name   string
	Width  int
	Height int
	Seed   int64
	Bots   map[string]string
}

// CreatedGame is a freshly created game and the seat tokens for its tribes.
type CreatedGame struct {
	Game  *model.Game       `json:"game"`
	Seats map[string]string `json:"seats"`
}

// GameService handles game lifecycle operations.
type GameService struct {
	gameRepo repository.GameRepository
	turnRepo repository.TurnRepository
	cache    repository.GameCache // nil without redis
	tokens   SeatTokenIssuer
	botOpts  bot.Options
	defaults tribes.NewGameOptions
}

// NewGameService creates a GameService. cache may be nil.
func NewGameService(gameRepo repository.GameRepository, turnRepo repository.TurnRepository, cache repository.GameCache, tokens SeatTokenIssuer) *GameService {
	return &GameService{gameRepo: gameRepo, turnRepo: turnRepo, cache: cache, tokens: tokens}
}

// SetBotOptions configures how seat strategies are resolved.
func (s *GameService) SetBotOptions(opts bot.Options) {
	s.botOpts = opts
}

// SetMapDefaults sets the map size and seed used when a request leaves them
// zero. A zero seed keeps maps random.
func (s *GameService) SetMapDefaults(width, height int, seed int64) {
	s.defaults = tribes.NewGameOptions{Width: width, Height: height, Seed: seed}
}

// CreateGame generates a map, stores the game row and its initial snapshot,
// and issues one seat token per tribe.
func (s *GameService) CreateGame(ctx context.Context, opts CreateGameOptions) (*CreatedGame, error) {
	bots := make(map[tribes.Tribe]string, len(opts.Bots))
	for name, strategy := range opts.Bots {
		t, err := tribes.ParseTribe(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeat, err)
		}
		if _, err := bot.StrategyFor(strategy, s.botOpts); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSeat, name, err)
		}
		bots[t] = strategy
	}
	seats := make([]model.Seat, 0, len(tribes.AllTribes()))
	for _, t := range tribes.AllTribes() {
		seat := model.Seat{Tribe: string(t), Controller: model.ControllerHuman}
		if strategy, ok := bots[t]; ok {
			seat.Controller = model.ControllerBot
			seat.Strategy = strategy
		}
		seats = append(seats, seat)
	}
	if strings.TrimSpace(opts.Name) == "" {
		opts.Name = "Untitled"
	}
	if opts.Width == 0 {
		opts.Width = s.defaults.Width
	}
	if opts.Height == 0 {
		opts.Height = s.defaults.Height
	}
	if opts.Seed == 0 {
		opts.Seed = s.defaults.Seed
	}

	gs, err := tribes.NewGame("", tribes.NewGameOptions{Width: opts.Width, Height: opts.Height, Seed: opts.Seed})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}

	game, err := s.gameRepo.Create(ctx, &model.Game{
		Name:         opts.Name,
		Status:       model.GameInProgress,
		Width:        gs.Map.Width,
		Height:       gs.Map.Height,
		Seed:         opts.Seed,
		Turn:         gs.Turn,
		CurrentTribe: string(gs.CurrentTribe),
		Seats:        seats,
	})
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	gs.GameID = game.ID

	doc, err := tribes.Save(gs)
	if err != nil {
		return nil, fmt.Errorf("save initial state: %w", err)
	}
	if _, err := s.turnRepo.AppendTurn(ctx, &model.Turn{GameID: game.ID, Seq: 0, Turn: gs.Turn, StateAfter: doc}); err != nil {
		return nil, fmt.Errorf("store initial snapshot: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetGameState(ctx, game.ID, doc); err != nil {
			log.Warn().Err(err).Str("gameId", game.ID).Msg("Failed to cache initial state")
		}
	}

	tokens := make(map[string]string, len(seats))
	for _, seat := range seats {
		tok, err := s.tokens.IssueSeatToken(game.ID, seat.Tribe)
		if err != nil {
			return nil, fmt.Errorf("issue seat token: %w", err)
		}
		tokens[seat.Tribe] = tok
	}

	log.Info().Str("gameId", game.ID).Str("name", game.Name).
		Int("width", game.Width).Int("height", game.Height).Int("bots", len(opts.Bots)).
		Msg("Game created")
	return &CreatedGame{Game: game, Seats: tokens}, nil
}

// GetGame returns a game by ID.
func (s *GameService) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// ListGames returns games, optionally filtered by status.
func (s *GameService) ListGames(ctx context.Context, status string, limit int) ([]model.Game, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.gameRepo.List(ctx, strings.ToUpper(status), limit)
}

// GetState returns the current state of a game, from the cache when warm
// and otherwise from the latest snapshot in the turn log.
func (s *GameService) GetState(ctx context.Context, gameID string) (*tribes.GameState, error) {
	if s.cache != nil {
		doc, err := s.cache.GetGameState(ctx, gameID)
		if err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Cache read failed, falling back to turn log")
		} else if doc != nil {
			gs, err := tribes.Load(doc)
			if err == nil {
				return gs, nil
			}
			log.Warn().Err(err).Str("gameId", gameID).Msg("Cached state corrupt, falling back to turn log")
		}
	}

	latest, err := s.turnRepo.LatestTurn(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("latest turn: %w", err)
	}
	if latest == nil {
		return nil, ErrGameNotFound
	}
	gs, err := tribes.Load(latest.StateAfter)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", latest.Seq, err)
	}
	if s.cache != nil {
		if err := s.cache.SetGameState(ctx, gameID, latest.StateAfter); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to rehydrate cache")
		}
	}
	return gs, nil
}

// DeleteGame removes a game, its turn log and any cached data.
func (s *GameService) DeleteGame(ctx context.Context, gameID string) error {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return err
	}
	if game == nil {
		return ErrGameNotFound
	}
	if err := s.gameRepo.Delete(ctx, gameID); err != nil {
		return err
	}
	if s.cache != nil {
		return s.cache.DeleteGameData(ctx, gameID)
	}
	return nil
}

// RecoverGames rehydrates cached state for every in-progress game from the
// turn log. Called on server startup.
func (s *GameService) RecoverGames(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	games, err := s.gameRepo.List(ctx, model.GameInProgress, 1000)
	if err != nil {
		return 0, fmt.Errorf("list active games: %w", err)
	}
	if len(games) == 0 {
		log.Info().Msg("No active games to recover")
		return 0, nil
	}

	log.Info().Int("count", len(games)).Msg("Recovering active games after restart")
	recovered := 0
	for _, game := range games {
		latest, err := s.turnRepo.LatestTurn(ctx, game.ID)
		if err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to get latest turn during recovery")
			continue
		}
		if latest == nil {
			log.Warn().Str("gameId", game.ID).Msg("Active game has no snapshot, skipping")
			continue
		}
		if err := s.cache.SetGameState(ctx, game.ID, latest.StateAfter); err != nil {
			log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to restore game state")
			continue
		}
		recovered++
		log.Info().Str("gameId", game.ID).Int("turn", latest.Turn).Int("seq", latest.Seq).Msg("Recovered game state")
	}
	return recovered, nil
}
