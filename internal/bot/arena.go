package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/model"
	"github.com/freeeve/tribes/internal/repository"
	"github.com/freeeve/tribes/pkg/tribes"
)

// ArenaConfig configures a single bot-vs-bot game.
type ArenaConfig struct {
	GameName    string
	TribeConfig map[tribes.Tribe]string // tribe -> strategy name
	MaxTurns    int                     // cap for a draw
	Seed        int64                   // map and dice seed; 0 = random
	Width       int
	Height      int
	DryRun      bool // skip DB writes
	Options     Options
}

// ArenaResult describes the outcome of a completed arena game.
type ArenaResult struct {
	GameID   string
	Winner   tribes.Tribe // empty for a draw or stall
	Stalled  bool         // a tribe had no legal action
	Turns    int
	Actions  int
	Invalid  map[tribes.Tribe]int // rejected or failed strategy decisions
	Gold     map[tribes.Tribe]int
	Units    map[tribes.Tribe]int
	Final    *tribes.GameState
	Strategy map[tribes.Tribe]string
}

// RunGame plays a full game between strategies. Pass nil repos for dry-run mode.
func RunGame(
	ctx context.Context,
	cfg ArenaConfig,
	gameRepo repository.GameRepository,
	turnRepo repository.TurnRepository,
) (*ArenaResult, error) {
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 200
	}
	if cfg.Seed == 0 {
		cfg.Seed = botInt63()
	}

	strategies := make(map[tribes.Tribe]Strategy)
	names := make(map[tribes.Tribe]string)
	for _, t := range tribes.AllTribes() {
		s, err := StrategyFor(cfg.TribeConfig[t], cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("strategy for %s: %w", t, err)
		}
		strategies[t] = s
		names[t] = s.Name()
	}

	gs, err := tribes.NewGame(cfg.GameName, tribes.NewGameOptions{Width: cfg.Width, Height: cfg.Height, Seed: cfg.Seed})
	if err != nil {
		return nil, fmt.Errorf("new game: %w", err)
	}

	rec := &arenaRecorder{games: gameRepo, turns: turnRepo, dryRun: cfg.DryRun}
	gameID, err := rec.start(ctx, cfg, gs, names)
	if err != nil {
		return nil, fmt.Errorf("create arena game: %w", err)
	}

	mgr := tribes.NewManager(gs, tribes.NewRandDice(cfg.Seed))
	result := &ArenaResult{
		GameID:   gameID,
		Invalid:  make(map[tribes.Tribe]int),
		Strategy: names,
	}

	for mgr.State().Status == tribes.StatusInProgress && mgr.State().Turn <= cfg.MaxTurns {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tribe := mgr.State().CurrentTribe

		diff, err := playOne(ctx, mgr, tribe, strategies[tribe], result)
		if errors.Is(err, ErrNoLegalAction) {
			result.Stalled = true
			log.Info().Str("gameId", gameID).Str("tribe", string(tribe)).Int("turn", mgr.State().Turn).
				Msg("Arena game stalled, no legal action")
			break
		}
		if err != nil {
			return nil, err
		}
		result.Actions++
		if err := rec.turn(ctx, result.Actions, tribe, diff, mgr.State()); err != nil {
			return nil, err
		}
	}

	final := mgr.State()
	result.Final = final
	result.Turns = final.Turn
	result.Gold = make(map[tribes.Tribe]int)
	result.Units = make(map[tribes.Tribe]int)
	for _, t := range tribes.AllTribes() {
		result.Gold[t] = final.Gold(t)
		result.Units[t] = len(final.UnitsOf(t))
	}
	if w, ok := tribes.Winner(final); ok && final.Status == tribes.StatusFinished {
		result.Winner = w
	}

	if err := rec.finish(ctx, result.Winner); err != nil {
		return nil, err
	}
	log.Info().Str("gameId", gameID).Str("winner", string(result.Winner)).Int("turn", result.Turns).
		Int("actions", result.Actions).Bool("stalled", result.Stalled).Msg("Arena game finished")
	return result, nil
}

// playOne asks the strategy for an action and applies it. A failed or
// rejected decision falls back to the first legal action.
func playOne(ctx context.Context, mgr *tribes.Manager, tribe tribes.Tribe, s Strategy, result *ArenaResult) (*tribes.Diff, error) {
	req, err := s.Decide(ctx, mgr.State(), tribe)
	if err == nil {
		diff, applyErr := mgr.Apply(tribe, req)
		if applyErr == nil {
			return diff, nil
		}
		if errors.Is(applyErr, tribes.ErrInternal) {
			return nil, fmt.Errorf("apply %s for %s: %w", req.Action, tribe, applyErr)
		}
		err = applyErr
	}
	if errors.Is(err, ErrNoLegalAction) {
		return nil, err
	}

	result.Invalid[tribe]++
	log.Warn().Err(err).Str("tribe", string(tribe)).Str("strategy", s.Name()).
		Int("turn", mgr.State().Turn).Msg("Strategy action rejected, using fallback")

	fallback, ferr := FirstLegal(mgr.State(), tribe)
	if ferr != nil {
		return nil, ferr
	}
	diff, err := mgr.Apply(tribe, fallback)
	if err != nil {
		return nil, fmt.Errorf("apply fallback for %s: %w", tribe, err)
	}
	return diff, nil
}

// arenaRecorder persists an arena game unless running dry.
type arenaRecorder struct {
	games  repository.GameRepository
	turns  repository.TurnRepository
	dryRun bool
	gameID string
}

func (r *arenaRecorder) start(ctx context.Context, cfg ArenaConfig, gs *tribes.GameState, names map[tribes.Tribe]string) (string, error) {
	if r.dryRun {
		return gs.GameID, nil
	}
	g := &model.Game{
		Name:         cfg.GameName,
		Status:       model.GameInProgress,
		Width:        gs.Map.Width,
		Height:       gs.Map.Height,
		Seed:         cfg.Seed,
		Turn:         gs.Turn,
		CurrentTribe: string(gs.CurrentTribe),
	}
	for _, t := range tribes.AllTribes() {
		g.Seats = append(g.Seats, model.Seat{Tribe: string(t), Controller: model.ControllerBot, Strategy: names[t]})
	}
	created, err := r.games.Create(ctx, g)
	if err != nil {
		return "", err
	}
	r.gameID = created.ID
	gs.GameID = created.ID

	doc, err := tribes.Save(gs)
	if err != nil {
		return "", err
	}
	if _, err := r.turns.AppendTurn(ctx, &model.Turn{GameID: r.gameID, Seq: 0, Turn: gs.Turn, StateAfter: doc}); err != nil {
		return "", err
	}
	return r.gameID, nil
}

func (r *arenaRecorder) turn(ctx context.Context, seq int, tribe tribes.Tribe, diff *tribes.Diff, gs *tribes.GameState) error {
	if r.dryRun {
		return nil
	}
	action, err := json.Marshal(diff.Action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	diffJSON, err := json.Marshal(diff)
	if err != nil {
		return fmt.Errorf("marshal diff: %w", err)
	}
	doc, err := tribes.Save(gs)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	_, err = r.turns.AppendTurn(ctx, &model.Turn{
		GameID: r.gameID, Seq: seq, Turn: gs.Turn, Tribe: string(tribe),
		Action: action, Diff: diffJSON, StateAfter: doc,
	})
	if err != nil {
		return fmt.Errorf("record turn %d: %w", seq, err)
	}
	return r.games.UpdateProgress(ctx, r.gameID, gs.Turn, string(gs.CurrentTribe))
}

func (r *arenaRecorder) finish(ctx context.Context, winner tribes.Tribe) error {
	if r.dryRun {
		return nil
	}
	if err := r.games.SetFinished(ctx, r.gameID, string(winner)); err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}

// ParseTribeConfig parses "RED=rush,BLUE=greedy,*=heuristic" into a per-tribe
// strategy map. Tribes not named get the "*" default, or heuristic.
func ParseTribeConfig(s string) (map[tribes.Tribe]string, error) {
	cfg := make(map[tribes.Tribe]string)
	def := "heuristic"
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("bad tribe config entry %q", part)
		}
		if key == "*" {
			def = val
			continue
		}
		t, err := tribes.ParseTribe(key)
		if err != nil {
			return nil, err
		}
		cfg[t] = val
	}
	for _, t := range tribes.AllTribes() {
		if _, ok := cfg[t]; !ok {
			cfg[t] = def
		}
	}
	return cfg, nil
}
