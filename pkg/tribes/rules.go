package tribes

// Rules are pure queries over a GameState snapshot. None of them mutate state.

// IsValidPosition reports whether c lies within the map bounds.
func IsValidPosition(gs *GameState, c Coord) bool {
	return gs.Map.InBounds(c)
}

// IsPassable reports whether units may enter or buildings may be placed on c.
// Water and mountains block both.
func IsPassable(gs *GameState, c Coord) bool {
	tile := gs.Map.TileAt(c)
	if tile == nil {
		return false
	}
	return tile.Terrain != Water && tile.Terrain != Mountain
}

// IsOwnedBy reports whether the tile at c belongs to t.
func IsOwnedBy(gs *GameState, c Coord, t Tribe) bool {
	tile := gs.Map.TileAt(c)
	return tile != nil && t != "" && tile.Owner == t
}

// TerrainDefenseBonus is the strength added to a defender standing on terrain.
func TerrainDefenseBonus(t Terrain) int {
	switch t {
	case Forest:
		return 1
	case Mountain:
		return 2
	default:
		return 0
	}
}

// AdjacentTowerBonus sums the bonus from every friendly tower adjacent to c.
func AdjacentTowerBonus(gs *GameState, c Coord, t Tribe) int {
	bonus := 0
	for _, n := range c.Neighbors() {
		if b := gs.BuildingAt(n); b != nil && b.Type == Tower && b.Tribe == t {
			bonus += TowerDefenseBonus
		}
	}
	return bonus
}

// CombatResult is the outcome of one engagement, including the raw dice so
// the roll can be audited and replayed.
type CombatResult struct {
	AttackerWins     bool
	AttackerRoll     int
	DefenderRoll     int
	AttackerStrength int
	DefenderStrength int
}

// ResolveCombat rolls one engagement between attacker and defender. Ties
// favor the defender: the attacker needs a strictly greater total.
func ResolveCombat(gs *GameState, attacker, defender *Unit, ranged bool, dice Dice) CombatResult {
	atk := StatsOf(attacker.Type).Strength
	if ranged && attacker.Type == Archer {
		atk -= RangedPenalty
	}

	def := StatsOf(defender.Type).Strength
	if tile := gs.Map.TileAt(defender.Position); tile != nil {
		def += TerrainDefenseBonus(tile.Terrain)
	}
	def += AdjacentTowerBonus(gs, defender.Position, defender.Tribe)

	atkRoll := dice.Roll()
	defRoll := dice.Roll()

	return CombatResult{
		AttackerWins:     atk+atkRoll > def+defRoll,
		AttackerRoll:     atkRoll,
		DefenderRoll:     defRoll,
		AttackerStrength: atk,
		DefenderStrength: def,
	}
}

// CanMove checks whether unit may move to target.
func CanMove(gs *GameState, unit *Unit, target Coord) error {
	if unit.Tribe != gs.CurrentTribe {
		return violation(ActionMove, "Not your turn")
	}
	if !IsValidPosition(gs, target) {
		return violation(ActionMove, "Target out of bounds")
	}
	if !IsPassable(gs, target) {
		return violation(ActionMove, "Target is not passable")
	}
	if movement := StatsOf(unit.Type).Movement; HexDistance(unit.Position, target) > movement {
		return violation(ActionMove, "Target too far (max %d hexes)", movement)
	}
	for _, u := range gs.UnitsAt(target) {
		if u.Tribe != unit.Tribe {
			return violation(ActionMove, "Target has enemy unit (use ATTACK action)")
		}
	}
	if b := gs.BuildingAt(target); b != nil && b.Tribe != unit.Tribe && b.Type == Wall {
		return violation(ActionMove, "Wall blocks movement")
	}
	return nil
}

// CanAttack checks whether attacker may engage the unit with id targetID.
func CanAttack(gs *GameState, attacker *Unit, targetID int) error {
	if attacker.Tribe != gs.CurrentTribe {
		return violation(ActionAttack, "Not your turn")
	}
	defender := gs.UnitByID(targetID)
	if defender == nil {
		return violation(ActionAttack, "Target unit not found")
	}
	if defender.Tribe == attacker.Tribe {
		return violation(ActionAttack, "Cannot attack friendly units")
	}

	distance := HexDistance(attacker.Position, defender.Position)
	if attacker.Type == Archer {
		if distance > ArcherRange {
			return violation(ActionAttack, "Target too far for archer (max %d hexes)", ArcherRange)
		}
	} else if distance > MeleeRange {
		return violation(ActionAttack, "Must be adjacent to attack")
	}

	if StatsOf(attacker.Type).Strength == 0 {
		return violation(ActionAttack, "This unit cannot attack")
	}
	return nil
}

// CanBuild checks whether t may place a building of type bt at pos.
func CanBuild(gs *GameState, t Tribe, bt BuildingType, pos Coord) error {
	if !gs.TribeAlive(t) {
		return violation(ActionBuild, "Tribe is not alive")
	}
	if !IsValidPosition(gs, pos) {
		return violation(ActionBuild, "Position out of bounds")
	}
	if !IsOwnedBy(gs, pos, t) {
		return violation(ActionBuild, "Must build on owned territory")
	}
	if !IsPassable(gs, pos) {
		return violation(ActionBuild, "Cannot build on water or mountains")
	}
	if gs.BuildingAt(pos) != nil {
		return violation(ActionBuild, "Position already has a building")
	}
	if cost, gold := BuildingStatsOf(bt).Cost, gs.Gold(t); gold < cost {
		return violation(ActionBuild, "Not enough gold (need %d, have %d)", cost, gold)
	}
	return nil
}

// CanTrainUnit checks whether t may train a unit of type ut at the building
// with id buildingID.
func CanTrainUnit(gs *GameState, t Tribe, ut UnitType, buildingID int) error {
	if !gs.TribeAlive(t) {
		return violation(ActionTrain, "Tribe is not alive")
	}
	b := gs.BuildingByID(buildingID)
	if b == nil {
		return violation(ActionTrain, "Building not found")
	}
	if b.Tribe != t {
		return violation(ActionTrain, "Building belongs to another tribe")
	}

	switch ut {
	case Warrior, Archer, Knight:
		if b.Type != Castle && b.Type != Barracks {
			return violation(ActionTrain, "Must train combat units at Castle or Barracks")
		}
	case Worker, Settler:
		if b.Type != Castle {
			return violation(ActionTrain, "Must train workers and settlers at Castle")
		}
	}

	if cost, gold := StatsOf(ut).Cost, gs.Gold(t); gold < cost {
		return violation(ActionTrain, "Not enough gold (need %d, have %d)", cost, gold)
	}
	if len(gs.UnitsAt(b.Position)) > 0 {
		return violation(ActionTrain, "Building position is occupied")
	}
	return nil
}

// CanHarvest checks whether unit may start harvesting the mine with id mineID.
func CanHarvest(gs *GameState, unit *Unit, mineID int) error {
	if unit.Tribe != gs.CurrentTribe {
		return violation(ActionHarvest, "Not your turn")
	}
	if unit.Type != Worker {
		return violation(ActionHarvest, "Only workers can harvest")
	}
	mine := gs.MineByID(mineID)
	if mine == nil {
		return violation(ActionHarvest, "Mine not found")
	}
	if unit.Position != mine.Position {
		return violation(ActionHarvest, "Worker must be at mine position")
	}
	if !IsOwnedBy(gs, mine.Position, unit.Tribe) {
		return violation(ActionHarvest, "Mine must be in your territory")
	}
	if mine.WorkerID != nil && *mine.WorkerID != unit.ID {
		return violation(ActionHarvest, "Mine is already being harvested")
	}
	return nil
}

// CanSettle checks whether settler unit may claim target.
func CanSettle(gs *GameState, unit *Unit, target Coord) error {
	if unit.Tribe != gs.CurrentTribe {
		return violation(ActionSettle, "Not your turn")
	}
	if unit.Type != Settler {
		return violation(ActionSettle, "Only settlers can settle")
	}
	if !IsValidPosition(gs, target) {
		return violation(ActionSettle, "Target out of bounds")
	}
	if HexDistance(unit.Position, target) > 1 {
		return violation(ActionSettle, "Target must be adjacent")
	}
	tile := gs.Map.TileAt(target)
	if tile == nil {
		return violation(ActionSettle, "Invalid target")
	}
	if tile.Owner != "" {
		return violation(ActionSettle, "Target is already owned")
	}
	for _, n := range target.Neighbors() {
		if IsOwnedBy(gs, n, unit.Tribe) {
			return nil
		}
	}
	return violation(ActionSettle, "Target must be adjacent to your territory")
}

// CollectIncome computes the gold each tribe earns from workers on mines.
func CollectIncome(gs *GameState) map[Tribe]int {
	income := make(map[Tribe]int)
	for _, m := range gs.GoldMines {
		if m.WorkerID == nil {
			continue
		}
		if w := gs.UnitByID(*m.WorkerID); w != nil && w.Type == Worker {
			income[w.Tribe] += GoldPerWorker
		}
	}
	return income
}

// HasCastle reports whether t owns at least one castle.
func HasCastle(gs *GameState, t Tribe) bool {
	for _, b := range gs.Buildings {
		if b.Tribe == t && b.Type == Castle {
			return true
		}
	}
	return false
}

// NextTribe returns the next living tribe after current in turn order. If no
// other tribe is alive, current is returned.
func NextTribe(gs *GameState, current Tribe) Tribe {
	order := AllTribes()
	idx := current.turnIndex()
	for i := 1; i <= len(order); i++ {
		next := order[(idx+i)%len(order)]
		if gs.TribeAlive(next) {
			return next
		}
	}
	return current
}

// Winner returns the sole surviving tribe, if exactly one remains.
func Winner(gs *GameState) (Tribe, bool) {
	alive := gs.AliveTribes()
	if len(alive) == 1 {
		return alive[0], true
	}
	return "", false
}
