package bot

import (
	"sort"

	"github.com/freeeve/tribes/pkg/tribes"
)

// view is a tribe's read-only perspective on a position, with helpers that
// only ever propose actions the validator accepts.
type view struct {
	gs    *tribes.GameState
	tribe tribes.Tribe
	own   []tribes.Unit
}

func newView(gs *tribes.GameState, tribe tribes.Tribe) view {
	return view{gs: gs, tribe: tribe, own: gs.UnitsOf(tribe)}
}

func (v view) legal(a tribes.Action) bool {
	return tribes.ValidateAction(v.gs, v.tribe, a) == nil
}

func (v view) gold() int {
	return v.gs.Gold(v.tribe)
}

func (v view) ofType(types ...tribes.UnitType) []tribes.Unit {
	var out []tribes.Unit
	for _, u := range v.own {
		for _, t := range types {
			if u.Type == t {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

func (v view) combatUnits() []tribes.Unit {
	return v.ofType(tribes.Knight, tribes.Warrior, tribes.Archer)
}

func (v view) enemies() []tribes.Unit {
	var out []tribes.Unit
	for _, u := range v.gs.Units {
		if u.Tribe != v.tribe {
			out = append(out, u)
		}
	}
	return out
}

func (v view) centre() tribes.Coord {
	return tribes.C(v.gs.Map.Width/2, v.gs.Map.Height/2)
}

// train tries each own building, castle first, for a unit of type ut.
func (v view) train(ut tribes.UnitType) (tribes.Action, bool) {
	buildings := v.gs.BuildingsOf(v.tribe)
	sort.SliceStable(buildings, func(i, j int) bool {
		return buildings[i].Type == tribes.Castle && buildings[j].Type != tribes.Castle
	})
	for _, b := range buildings {
		a := tribes.TrainAction{UnitType: ut, BuildingID: b.ID}
		if v.legal(a) {
			return a, true
		}
	}
	return nil, false
}

// bestAttack returns the legal attack with the highest win chance, provided
// it is at least minChance.
func (v view) bestAttack(minChance float64) (tribes.Action, bool) {
	var best tribes.Action
	bestChance := minChance
	for _, u := range v.combatUnits() {
		for _, e := range v.enemies() {
			a := tribes.AttackAction{UnitID: u.ID, TargetID: e.ID}
			if !v.legal(a) {
				continue
			}
			if p := winChance(v.gs, u, e); p >= bestChance {
				best, bestChance = a, p
			}
		}
	}
	return best, best != nil
}

// stepToward moves u to the reachable hex closest to goal. It only returns
// moves that strictly shorten the distance.
func (v view) stepToward(u tribes.Unit, goal tribes.Coord) (tribes.Action, bool) {
	current := tribes.HexDistance(u.Position, goal)
	hexes := tribes.HexesWithin(v.gs, u.Position, tribes.StatsOf(u.Type).Movement)
	sort.SliceStable(hexes, func(i, j int) bool {
		return tribes.HexDistance(hexes[i], goal) < tribes.HexDistance(hexes[j], goal)
	})
	for _, c := range hexes {
		if tribes.HexDistance(c, goal) >= current {
			break
		}
		a := tribes.MoveAction{UnitID: u.ID, Target: c}
		if v.legal(a) {
			return a, true
		}
	}
	return nil, false
}

// harvest returns a harvest order for a worker standing on a mine.
func (v view) harvest(u tribes.Unit) (tribes.Action, bool) {
	if u.Type != tribes.Worker || u.Harvesting != nil {
		return nil, false
	}
	mine := v.gs.MineAt(u.Position)
	if mine == nil {
		return nil, false
	}
	a := tribes.HarvestAction{UnitID: u.ID, MineID: mine.ID}
	return a, v.legal(a)
}

// freeMines returns the positions of mines nobody is working.
func (v view) freeMines() []tribes.Coord {
	var out []tribes.Coord
	for _, m := range v.gs.GoldMines {
		if m.WorkerID == nil {
			out = append(out, m.Position)
		}
	}
	return out
}

// settleToward claims the adjacent tile closest to goal.
func (v view) settleToward(u tribes.Unit, goal tribes.Coord) (tribes.Action, bool) {
	var best tribes.Action
	bestDist := -1
	for _, c := range u.Position.Neighbors() {
		a := tribes.SettleAction{UnitID: u.ID, Target: c}
		if !v.legal(a) {
			continue
		}
		if d := tribes.HexDistance(c, goal); bestDist < 0 || d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, best != nil
}

// frontier returns the owned tile nearest goal, the natural staging point for
// a settler.
func (v view) frontier(goal tribes.Coord) (tribes.Coord, bool) {
	var owned []tribes.Coord
	for _, t := range v.gs.Map.Tiles {
		if t.Owner == v.tribe {
			owned = append(owned, t.Coord())
		}
	}
	return nearest(goal, owned)
}

func nearest(from tribes.Coord, targets []tribes.Coord) (tribes.Coord, bool) {
	if len(targets) == 0 {
		return tribes.Coord{}, false
	}
	best := targets[0]
	for _, t := range targets[1:] {
		if tribes.HexDistance(from, t) < tribes.HexDistance(from, best) {
			best = t
		}
	}
	return best, true
}

func positions(units []tribes.Unit) []tribes.Coord {
	out := make([]tribes.Coord, len(units))
	for i, u := range units {
		out[i] = u.Position
	}
	return out
}

// first returns the first action whose plan step succeeds.
func first(steps ...func() (tribes.Action, bool)) (tribes.Action, bool) {
	for _, step := range steps {
		if a, ok := step(); ok {
			return a, true
		}
	}
	return nil, false
}
