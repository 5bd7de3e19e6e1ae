package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/freeeve/tribes/pkg/tribes"
)

// ErrNoLegalAction is returned when a tribe has nothing it may legally do.
var ErrNoLegalAction = errors.New("no legal action")

// Strategy decides one action for a tribe. Implementations must not mutate gs.
type Strategy interface {
	Name() string
	Decide(ctx context.Context, gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error)
}

// Options configures strategy construction.
type Options struct {
	// StrategyDir is where relative external program paths are resolved.
	StrategyDir string
	// Timeout bounds a single external decision.
	Timeout time.Duration
}

// Names lists the built-in strategy names.
func Names() []string {
	return []string{"heuristic", "rush", "expand", "greedy", "random"}
}

// StrategyFor returns the strategy registered under name. Names of the form
// "external:<program>" run a program per decision.
func StrategyFor(name string, opts Options) (Strategy, error) {
	switch name {
	case "", "heuristic", "easy":
		return HeuristicStrategy{}, nil
	case "rush":
		return RushStrategy{}, nil
	case "expand":
		return ExpandStrategy{}, nil
	case "greedy", "medium":
		return GreedyStrategy{}, nil
	case "random":
		return RandomStrategy{}, nil
	}
	if prog, ok := strings.CutPrefix(name, "external:"); ok && prog != "" {
		if !filepath.IsAbs(prog) && opts.StrategyDir != "" {
			prog = filepath.Join(opts.StrategyDir, prog)
		}
		return NewExternalStrategy(prog, WithTimeout(opts.Timeout)), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// --- RandomStrategy ---

// RandomStrategy picks uniformly among the legal actions.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return "random" }

func (RandomStrategy) Decide(_ context.Context, gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error) {
	legal := tribes.LegalActions(gs, tribe)
	if len(legal) == 0 {
		return tribes.ActionRequest{}, ErrNoLegalAction
	}
	return legal[botIntn(len(legal))].Request(), nil
}

// FirstLegal returns the first legal action for tribe, used when a strategy
// misbehaves and the turn must still advance.
func FirstLegal(gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error) {
	legal := tribes.LegalActions(gs, tribe)
	if len(legal) == 0 {
		return tribes.ActionRequest{}, ErrNoLegalAction
	}
	return legal[0].Request(), nil
}
