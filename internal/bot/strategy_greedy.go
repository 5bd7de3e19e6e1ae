package bot

import (
	"context"

	"github.com/freeeve/tribes/pkg/tribes"
)

// GreedyStrategy plays the legal action with the best one-ply evaluation.
// Attacks are scored as the win-probability weighted mix of both outcomes.
type GreedyStrategy struct{}

func (GreedyStrategy) Name() string { return "greedy" }

func (GreedyStrategy) Decide(ctx context.Context, gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error) {
	legal := tribes.LegalActions(gs, tribe)
	if len(legal) == 0 {
		return tribes.ActionRequest{}, ErrNoLegalAction
	}

	best := legal[0]
	bestScore := 0.0
	for i, a := range legal {
		if ctx.Err() != nil {
			break
		}
		score, ok := scoreAction(gs, tribe, a)
		if !ok {
			continue
		}
		if i == 0 || score > bestScore {
			best, bestScore = a, score
		}
	}
	return best.Request(), nil
}

var (
	winningRolls = []int{6, 1}
	losingRolls  = []int{1, 6}
)

func scoreAction(gs *tribes.GameState, tribe tribes.Tribe, a tribes.Action) (float64, bool) {
	atk, isAttack := a.(tribes.AttackAction)
	if !isAttack {
		return simulate(gs, tribe, a, nil)
	}
	attacker, defender := gs.UnitByID(atk.UnitID), gs.UnitByID(atk.TargetID)
	if attacker == nil || defender == nil {
		return 0, false
	}
	p := winChance(gs, *attacker, *defender)
	win, ok := simulate(gs, tribe, a, winningRolls)
	if !ok {
		return 0, false
	}
	lose, ok := simulate(gs, tribe, a, losingRolls)
	if !ok {
		return 0, false
	}
	return p*win + (1-p)*lose, true
}

// simulate applies a to a copy of gs and evaluates the result.
func simulate(gs *tribes.GameState, tribe tribes.Tribe, a tribes.Action, rolls []int) (float64, bool) {
	m := tribes.NewManager(gs.Clone(), &tribes.SequenceDice{Rolls: rolls})
	if _, err := m.ApplyAction(tribe, a); err != nil {
		return 0, false
	}
	return Evaluate(m.State(), tribe), true
}
