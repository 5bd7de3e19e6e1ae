package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/bot"
	"github.com/freeeve/tribes/internal/model"
	"github.com/freeeve/tribes/internal/repository"
	"github.com/freeeve/tribes/pkg/tribes"
)

// Event types sent to game subscribers.
const (
	EventActionApplied = "action_applied"
	EventGameOver      = "game_over"
)

const (
	lockTTL = 10 * time.Second
	// maxBotActions bounds one PlayBotTurns call so an all-bot game cannot
	// monopolise the caller.
	maxBotActions = 400
)

// ActionApplied is the payload of an action_applied event.
type ActionApplied struct {
	GameID       string       `json:"game_id"`
	Seq          int          `json:"seq"`
	Tribe        string       `json:"tribe"`
	Turn         int          `json:"turn"`
	CurrentTribe string       `json:"current_tribe"`
	Diff         *tribes.Diff `json:"diff"`
}

// Validation is the outcome of a dry-run validation.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// TurnService applies actions to games one at a time. Submissions for the
// same game are serialized by an in-process mutex and, across processes, a
// Redis lock.
type TurnService struct {
	games       *GameService
	gameRepo    repository.GameRepository
	turnRepo    repository.TurnRepository
	cache       repository.GameCache // nil without redis
	broadcaster Broadcaster
	owner       string
	botOpts     bot.Options
	newDice     func() tribes.Dice
	notify      func(gameID string)

	gameLocks sync.Map
}

// NewTurnService creates a TurnService. cache and broadcaster may be nil.
func NewTurnService(
	games *GameService,
	gameRepo repository.GameRepository,
	turnRepo repository.TurnRepository,
	cache repository.GameCache,
	broadcaster Broadcaster,
) *TurnService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &TurnService{
		games:       games,
		gameRepo:    gameRepo,
		turnRepo:    turnRepo,
		cache:       cache,
		broadcaster: broadcaster,
		owner:       uuid.NewString(),
		newDice:     func() tribes.Dice { return tribes.NewRandDice(time.Now().UnixNano()) },
	}
}

// SetDice replaces the dice source used for combat. Tests use it to make
// outcomes deterministic.
func (s *TurnService) SetDice(newDice func() tribes.Dice) {
	s.newDice = newDice
}

// SetBotOptions configures how seat strategies are resolved.
func (s *TurnService) SetBotOptions(opts bot.Options) {
	s.botOpts = opts
}

// SetNotifier registers fn to be called with the game id after every
// applied action.
func (s *TurnService) SetNotifier(fn func(gameID string)) {
	s.notify = fn
}

// gameLock returns the mutex for a given game ID.
func (s *TurnService) gameLock(gameID string) *sync.Mutex {
	v, _ := s.gameLocks.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Submit applies req on behalf of tribe and returns the resulting diff.
// Rejected actions wrap ErrInvalidAction around the engine error and leave
// nothing persisted.
func (s *TurnService) Submit(ctx context.Context, gameID, tribe string, req tribes.ActionRequest) (*tribes.Diff, error) {
	mu := s.gameLock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if s.cache != nil {
		if err := s.cache.LockGame(ctx, gameID, s.owner, lockTTL); err != nil {
			if errors.Is(err, repository.ErrLockHeld) {
				return nil, ErrGameBusy
			}
			return nil, fmt.Errorf("lock game: %w", err)
		}
		defer func() {
			if err := s.cache.UnlockGame(context.WithoutCancel(ctx), gameID, s.owner); err != nil {
				log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to release game lock")
			}
		}()
	}

	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.Status == model.GameFinished {
		return nil, ErrGameFinished
	}
	t, err := tribes.ParseTribe(tribe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotYourSeat, err)
	}

	gs, err := s.games.GetState(ctx, gameID)
	if err != nil {
		return nil, err
	}

	mgr := tribes.NewManager(gs, s.newDice())
	diff, err := mgr.Apply(t, req)
	if err != nil {
		if errors.Is(err, tribes.ErrInternal) {
			log.Error().Err(err).Str("gameId", gameID).Str("tribe", tribe).Str("action", string(req.Action)).
				Msg("Engine invariant broken while applying action")
			return nil, fmt.Errorf("apply: %w", err)
		}
		log.Debug().Err(err).Str("gameId", gameID).Str("tribe", tribe).Msg("Action rejected")
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	next := mgr.State()

	seq, err := s.record(ctx, game, t, diff, next)
	if err != nil {
		return nil, err
	}

	log.Info().Str("gameId", gameID).Str("tribe", tribe).Str("action", string(req.Action)).
		Int("turn", next.Turn).Int("seq", seq).Msg("Action applied")

	s.broadcaster.BroadcastGameEvent(gameID, EventActionApplied, ActionApplied{
		GameID:       gameID,
		Seq:          seq,
		Tribe:        tribe,
		Turn:         next.Turn,
		CurrentTribe: string(next.CurrentTribe),
		Diff:         diff,
	})
	if next.Status == tribes.StatusFinished {
		winner, _ := tribes.Winner(next)
		log.Info().Str("gameId", gameID).Str("winner", string(winner)).Int("turn", next.Turn).Msg("Game over")
		s.broadcaster.BroadcastGameEvent(gameID, EventGameOver, map[string]any{"winner": string(winner)})
	}
	if s.notify != nil {
		s.notify(gameID)
	}
	return diff, nil
}

// record persists the applied action: turn row first, then the game row,
// then the cache and diff stream.
func (s *TurnService) record(ctx context.Context, game *model.Game, t tribes.Tribe, diff *tribes.Diff, next *tribes.GameState) (int, error) {
	action, err := json.Marshal(diff.Action)
	if err != nil {
		return 0, fmt.Errorf("marshal action: %w", err)
	}
	diffJSON, err := json.Marshal(diff)
	if err != nil {
		return 0, fmt.Errorf("marshal diff: %w", err)
	}
	doc, err := tribes.Save(next)
	if err != nil {
		return 0, fmt.Errorf("save state: %w", err)
	}

	seq := len(next.History)
	if _, err := s.turnRepo.AppendTurn(ctx, &model.Turn{
		GameID: game.ID, Seq: seq, Turn: next.Turn, Tribe: string(t),
		Action: action, Diff: diffJSON, StateAfter: doc,
	}); err != nil {
		return 0, fmt.Errorf("record turn %d: %w", seq, err)
	}

	if next.Status == tribes.StatusFinished {
		winner, _ := tribes.Winner(next)
		if err := s.gameRepo.SetFinished(ctx, game.ID, string(winner)); err != nil {
			return 0, fmt.Errorf("set finished: %w", err)
		}
	} else if err := s.gameRepo.UpdateProgress(ctx, game.ID, next.Turn, string(next.CurrentTribe)); err != nil {
		return 0, fmt.Errorf("update progress: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetGameState(ctx, game.ID, doc); err != nil {
			log.Warn().Err(err).Str("gameId", game.ID).Msg("Failed to cache state")
		}
		if _, err := s.cache.AppendDiff(ctx, game.ID, diffJSON); err != nil {
			log.Warn().Err(err).Str("gameId", game.ID).Msg("Failed to append diff")
		}
	}
	return seq, nil
}

// ValidateOnly reports whether req would be accepted for tribe without
// applying it.
func (s *TurnService) ValidateOnly(ctx context.Context, gameID, tribe string, req tribes.ActionRequest) (*Validation, error) {
	gs, err := s.games.GetState(ctx, gameID)
	if err != nil {
		return nil, err
	}
	t, err := tribes.ParseTribe(tribe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotYourSeat, err)
	}
	ok, reason := tribes.Check(gs, t, req)
	return &Validation{Valid: ok, Reason: reason}, nil
}

// PlayBotTurns plays actions for as long as the tribe to move sits in a bot
// seat. Returns the number of actions applied.
func (s *TurnService) PlayBotTurns(ctx context.Context, gameID string) (int, error) {
	played := 0
	for played < maxBotActions {
		if err := ctx.Err(); err != nil {
			return played, err
		}
		game, err := s.gameRepo.FindByID(ctx, gameID)
		if err != nil {
			return played, err
		}
		if game == nil {
			return played, ErrGameNotFound
		}
		if game.Status != model.GameInProgress {
			return played, nil
		}
		seat := game.SeatFor(game.CurrentTribe)
		if seat == nil || !seat.IsBot() {
			return played, nil
		}

		gs, err := s.games.GetState(ctx, gameID)
		if err != nil {
			return played, err
		}
		req, err := s.decide(ctx, gs, seat)
		if errors.Is(err, bot.ErrNoLegalAction) {
			log.Warn().Str("gameId", gameID).Str("tribe", seat.Tribe).Msg("Bot seat has no legal action")
			return played, nil
		}
		if err != nil {
			return played, err
		}

		if _, err := s.Submit(ctx, gameID, seat.Tribe, req); err != nil {
			if !errors.Is(err, ErrInvalidAction) {
				return played, err
			}
			log.Warn().Err(err).Str("gameId", gameID).Str("tribe", seat.Tribe).Str("strategy", seat.Strategy).
				Msg("Bot action rejected, using fallback")
			fallback, ferr := bot.FirstLegal(gs, tribes.Tribe(seat.Tribe))
			if ferr != nil {
				return played, nil
			}
			if _, err := s.Submit(ctx, gameID, seat.Tribe, fallback); err != nil {
				if errors.Is(err, ErrInvalidAction) {
					// someone else moved the game on
					return played, nil
				}
				return played, err
			}
		}
		played++
	}
	return played, nil
}

// decide asks the seat's strategy for an action, falling back to the first
// legal action when the strategy fails.
func (s *TurnService) decide(ctx context.Context, gs *tribes.GameState, seat *model.Seat) (tribes.ActionRequest, error) {
	tribe := tribes.Tribe(seat.Tribe)
	strategy, err := bot.StrategyFor(seat.Strategy, s.botOpts)
	if err != nil {
		return tribes.ActionRequest{}, err
	}
	req, err := strategy.Decide(ctx, gs, tribe)
	if err == nil {
		return req, nil
	}
	if errors.Is(err, bot.ErrNoLegalAction) {
		return req, err
	}
	log.Warn().Err(err).Str("gameId", gs.GameID).Str("tribe", seat.Tribe).Str("strategy", strategy.Name()).
		Msg("Strategy failed, using fallback")
	return bot.FirstLegal(gs, tribe)
}

// History returns the game's turn log in order.
func (s *TurnService) History(ctx context.Context, gameID string) ([]model.Turn, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return s.turnRepo.ListTurns(ctx, gameID)
}

// DiffsSince returns the cached diffs from index from onward, for clients
// catching up after a reconnect. Returns nil without a cache.
func (s *TurnService) DiffsSince(ctx context.Context, gameID string, from int64) ([]json.RawMessage, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.Diffs(ctx, gameID, from)
}
