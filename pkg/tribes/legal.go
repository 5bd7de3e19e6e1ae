package tribes

// HexesWithin returns every in-bounds coordinate within radius of center,
// center included, in a stable order.
func HexesWithin(gs *GameState, center Coord, radius int) []Coord {
	var out []Coord
	for dq := -radius; dq <= radius; dq++ {
		lo, hi := max(-radius, -dq-radius), min(radius, -dq+radius)
		for dr := lo; dr <= hi; dr++ {
			c := Coord{Q: center.Q + dq, R: center.R + dr}
			if gs.Map.InBounds(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// LegalActions enumerates every action tribe t could legally submit now.
// It returns nil when it is not t's turn.
func LegalActions(gs *GameState, t Tribe) []Action {
	if checkTurn(gs, t) != nil {
		return nil
	}
	var candidates []Action

	for _, u := range gs.UnitsOf(t) {
		stats := StatsOf(u.Type)
		for _, c := range HexesWithin(gs, u.Position, stats.Movement) {
			if c != u.Position {
				candidates = append(candidates, MoveAction{UnitID: u.ID, Target: c})
			}
		}
		if stats.Strength > 0 {
			for _, enemy := range gs.Units {
				if enemy.Tribe != t {
					candidates = append(candidates, AttackAction{UnitID: u.ID, TargetID: enemy.ID})
				}
			}
		}
		switch u.Type {
		case Worker:
			if mine := gs.MineAt(u.Position); mine != nil {
				candidates = append(candidates, HarvestAction{UnitID: u.ID, MineID: mine.ID})
			}
		case Settler:
			for _, c := range u.Position.Neighbors() {
				candidates = append(candidates, SettleAction{UnitID: u.ID, Target: c})
			}
		}
	}

	for _, b := range gs.BuildingsOf(t) {
		for _, ut := range []UnitType{Worker, Settler, Warrior, Archer, Knight} {
			candidates = append(candidates, TrainAction{UnitType: ut, BuildingID: b.ID})
		}
	}

	for _, tile := range gs.Map.Tiles {
		if tile.Owner != t {
			continue
		}
		for _, bt := range []BuildingType{Barracks, Tower, Wall} {
			candidates = append(candidates, BuildAction{Building: bt, Position: tile.Coord()})
		}
	}

	var legal []Action
	for _, a := range candidates {
		if validateAction(gs, t, a) == nil {
			legal = append(legal, a)
		}
	}
	return legal
}
