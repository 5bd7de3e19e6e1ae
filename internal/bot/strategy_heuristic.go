package bot

import (
	"context"

	"github.com/freeeve/tribes/pkg/tribes"
)

// decide runs plan and falls back to the first legal action.
func decide(gs *tribes.GameState, tribe tribes.Tribe, plan func(v view) (tribes.Action, bool)) (tribes.ActionRequest, error) {
	if a, ok := plan(newView(gs, tribe)); ok {
		return a.Request(), nil
	}
	return FirstLegal(gs, tribe)
}

// --- HeuristicStrategy ---

// HeuristicStrategy builds an economy first: a worker heads for the nearest
// free mine, a settler extends territory toward it, and the knight walks to
// the centre. Favourable attacks always take priority.
type HeuristicStrategy struct{}

func (HeuristicStrategy) Name() string { return "heuristic" }

func (HeuristicStrategy) Decide(_ context.Context, gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error) {
	return decide(gs, tribe, func(v view) (tribes.Action, bool) {
		workers := v.ofType(tribes.Worker)
		settlers := v.ofType(tribes.Settler)
		mines := v.freeMines()

		return first(
			func() (tribes.Action, bool) { return v.bestAttack(0.5) },
			func() (tribes.Action, bool) {
				for _, w := range workers {
					if a, ok := v.harvest(w); ok {
						return a, true
					}
				}
				return nil, false
			},
			func() (tribes.Action, bool) {
				if len(workers) > 0 {
					return nil, false
				}
				return v.train(tribes.Worker)
			},
			func() (tribes.Action, bool) {
				for _, s := range settlers {
					goal, ok := nearest(s.Position, mines)
					if !ok {
						goal = v.centre()
					}
					if a, ok := v.settleToward(s, goal); ok {
						return a, true
					}
					if f, ok := v.frontier(goal); ok {
						if a, ok := v.stepToward(s, f); ok {
							return a, true
						}
					}
				}
				return nil, false
			},
			func() (tribes.Action, bool) {
				for _, w := range workers {
					if w.Harvesting != nil {
						continue
					}
					if goal, ok := nearest(w.Position, mines); ok {
						if a, ok := v.stepToward(w, goal); ok {
							return a, true
						}
					}
				}
				return nil, false
			},
			func() (tribes.Action, bool) {
				if len(settlers) > 0 || len(workers) == 0 {
					return nil, false
				}
				return v.train(tribes.Settler)
			},
			func() (tribes.Action, bool) {
				for _, k := range v.ofType(tribes.Knight) {
					if a, ok := v.stepToward(k, v.centre()); ok {
						return a, true
					}
				}
				return nil, false
			},
			func() (tribes.Action, bool) {
				if v.gold() < tribes.StatsOf(tribes.Warrior).Cost+tribes.StatsOf(tribes.Settler).Cost {
					return nil, false
				}
				return v.train(tribes.Warrior)
			},
			func() (tribes.Action, bool) {
				for _, u := range v.combatUnits() {
					if a, ok := v.stepToward(u, v.centre()); ok {
						return a, true
					}
				}
				return nil, false
			},
		)
	})
}

// --- RushStrategy ---

// RushStrategy trains warriors whenever it can and sends every combat unit at
// the nearest enemy.
type RushStrategy struct{}

func (RushStrategy) Name() string { return "rush" }

func (RushStrategy) Decide(_ context.Context, gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error) {
	return decide(gs, tribe, func(v view) (tribes.Action, bool) {
		enemies := positions(v.enemies())
		return first(
			func() (tribes.Action, bool) { return v.bestAttack(0) },
			func() (tribes.Action, bool) { return v.train(tribes.Warrior) },
			func() (tribes.Action, bool) {
				for _, u := range v.combatUnits() {
					goal, ok := nearest(u.Position, enemies)
					if !ok {
						goal = v.centre()
					}
					if a, ok := v.stepToward(u, goal); ok {
						return a, true
					}
				}
				return nil, false
			},
		)
	})
}

// --- ExpandStrategy ---

// ExpandStrategy grows territory with settlers and fortifies the frontier
// with towers once it can afford them.
type ExpandStrategy struct{}

func (ExpandStrategy) Name() string { return "expand" }

func (ExpandStrategy) Decide(_ context.Context, gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error) {
	return decide(gs, tribe, func(v view) (tribes.Action, bool) {
		settlers := v.ofType(tribes.Settler)
		return first(
			func() (tribes.Action, bool) { return v.bestAttack(0.6) },
			func() (tribes.Action, bool) {
				for _, s := range settlers {
					if a, ok := v.settleToward(s, v.centre()); ok {
						return a, true
					}
					if f, ok := v.frontier(v.centre()); ok {
						if a, ok := v.stepToward(s, f); ok {
							return a, true
						}
					}
				}
				return nil, false
			},
			func() (tribes.Action, bool) {
				if len(settlers) > 0 {
					return nil, false
				}
				return v.train(tribes.Settler)
			},
			func() (tribes.Action, bool) {
				f, ok := v.frontier(v.centre())
				if !ok {
					return nil, false
				}
				a := tribes.BuildAction{Building: tribes.Tower, Position: f}
				return a, v.legal(a)
			},
			func() (tribes.Action, bool) {
				for _, k := range v.ofType(tribes.Knight) {
					if a, ok := v.stepToward(k, v.centre()); ok {
						return a, true
					}
				}
				return nil, false
			},
		)
	})
}
