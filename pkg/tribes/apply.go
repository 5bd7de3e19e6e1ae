package tribes

import "time"

// idAllocator hands out unit and building ids. It is seeded from the highest
// id in a state so removed entities never have their ids reused.
type idAllocator struct {
	nextUnit     int
	nextBuilding int
}

func newIDAllocator(gs *GameState) idAllocator {
	ids := idAllocator{nextUnit: 1, nextBuilding: 1}
	for _, u := range gs.Units {
		if u.ID >= ids.nextUnit {
			ids.nextUnit = u.ID + 1
		}
	}
	for _, b := range gs.Buildings {
		if b.ID >= ids.nextBuilding {
			ids.nextBuilding = b.ID + 1
		}
	}
	return ids
}

func (a *idAllocator) unit() int {
	id := a.nextUnit
	a.nextUnit++
	return id
}

func (a *idAllocator) building() int {
	id := a.nextBuilding
	a.nextBuilding++
	return id
}

// Manager owns one authoritative GameState and applies actions to it.
// A Manager is not safe for concurrent use; callers serialize Apply.
type Manager struct {
	state *GameState
	ids   idAllocator
	dice  Dice
}

// NewManager takes ownership of gs. If dice is nil, a RandDice seeded from
// the clock is used; pass seeded dice to reproduce a game.
func NewManager(gs *GameState, dice Dice) *Manager {
	if dice == nil {
		dice = NewRandDice(time.Now().UnixNano())
	}
	return &Manager{state: gs, ids: newIDAllocator(gs), dice: dice}
}

// State returns the current state. Callers must not mutate it.
func (m *Manager) State() *GameState {
	return m.state
}

// NextUnitID reports the id the next trained unit will receive.
func (m *Manager) NextUnitID() int { return m.ids.nextUnit }

// NextBuildingID reports the id the next constructed building will receive.
func (m *Manager) NextBuildingID() int { return m.ids.nextBuilding }

// Apply validates req for tribe t and, if legal, applies it and runs
// end-of-action bookkeeping. On any error the state is left untouched.
func (m *Manager) Apply(t Tribe, req ActionRequest) (*Diff, error) {
	if err := checkTurn(m.state, t); err != nil {
		return nil, err
	}
	a, err := req.Parse()
	if err != nil {
		return nil, err
	}
	return m.ApplyAction(t, a)
}

// ApplyAction is Apply for an already-parsed action.
func (m *Manager) ApplyAction(t Tribe, a Action) (*Diff, error) {
	if err := ValidateAction(m.state, t, a); err != nil {
		return nil, err
	}

	next := m.state.Clone()
	ids := m.ids
	diff := &Diff{Action: a.Request()}

	tx := &applier{gs: next, ids: &ids, dice: m.dice, diff: diff, tribe: t}
	if err := tx.apply(a); err != nil {
		return nil, err
	}
	next.History = append(next.History, HistoryEntry{
		Turn:    next.Turn,
		Tribe:   t,
		Action:  a.Kind(),
		Details: a.Request(),
	})
	if err := tx.advanceTurn(); err != nil {
		return nil, err
	}

	m.state = next
	m.ids = ids
	return diff, nil
}

// applier mutates a private copy of the state for one action.
type applier struct {
	gs    *GameState
	ids   *idAllocator
	dice  Dice
	diff  *Diff
	tribe Tribe
}

func (x *applier) apply(a Action) error {
	switch a := a.(type) {
	case MoveAction:
		return x.move(a)
	case AttackAction:
		return x.attack(a)
	case BuildAction:
		return x.build(a)
	case TrainAction:
		return x.train(a)
	case HarvestAction:
		return x.harvest(a)
	case SettleAction:
		return x.settle(a)
	default:
		return internalf("no mutator for %T", a)
	}
}

func (x *applier) move(a MoveAction) error {
	u := x.gs.UnitByID(a.UnitID)
	if u == nil {
		return internalf("unit %d vanished before move", a.UnitID)
	}
	from := u.Position
	x.relocate(u, a.Target)
	x.diff.add(UnitMoved{UnitID: u.ID, From: from, To: a.Target})
	return nil
}

func (x *applier) attack(a AttackAction) error {
	attacker := x.gs.UnitByID(a.UnitID)
	defender := x.gs.UnitByID(a.TargetID)
	if attacker == nil || defender == nil {
		return internalf("combatants %d/%d vanished before attack", a.UnitID, a.TargetID)
	}
	attackerID, defenderID := attacker.ID, defender.ID
	ranged := HexDistance(attacker.Position, defender.Position) > 1

	res := ResolveCombat(x.gs, attacker, defender, ranged, x.dice)

	if res.AttackerWins {
		target := defender.Position
		x.removeUnit(defenderID)
		if !ranged {
			// removeUnit compacts the slice, so look the attacker up again.
			attacker = x.gs.UnitByID(attackerID)
			from := attacker.Position
			x.relocate(attacker, target)
			x.diff.add(UnitMoved{UnitID: attackerID, From: from, To: target})
		}
		x.diff.add(UnitKilled{UnitID: defenderID, KillerID: attackerID})
	} else {
		x.removeUnit(attackerID)
		x.diff.add(UnitKilled{UnitID: attackerID, KillerID: defenderID})
	}

	x.diff.add(Combat{
		AttackerID:   attackerID,
		DefenderID:   defenderID,
		AttackerRoll: res.AttackerRoll,
		DefenderRoll: res.DefenderRoll,
		AttackerWins: res.AttackerWins,
	})
	return nil
}

func (x *applier) build(a BuildAction) error {
	stats := BuildingStatsOf(a.Building)
	if err := x.debit(stats.Cost); err != nil {
		return err
	}
	b := Building{
		ID:       x.ids.building(),
		Tribe:    x.tribe,
		Type:     a.Building,
		Position: a.Position,
		HP:       stats.HP,
	}
	x.gs.Buildings = append(x.gs.Buildings, b)
	x.diff.add(BuildingCreated{BuildingID: b.ID, BuildingType: b.Type, Position: b.Position, Tribe: b.Tribe})
	return nil
}

func (x *applier) train(a TrainAction) error {
	b := x.gs.BuildingByID(a.BuildingID)
	if b == nil {
		return internalf("building %d vanished before train", a.BuildingID)
	}
	if err := x.debit(StatsOf(a.UnitType).Cost); err != nil {
		return err
	}
	u := Unit{
		ID:       x.ids.unit(),
		Tribe:    x.tribe,
		Type:     a.UnitType,
		Position: b.Position,
		CanAct:   false,
	}
	x.gs.Units = append(x.gs.Units, u)
	x.diff.add(UnitTrained{UnitID: u.ID, UnitType: u.Type, Position: u.Position, Tribe: u.Tribe})
	return nil
}

func (x *applier) harvest(a HarvestAction) error {
	u := x.gs.UnitByID(a.UnitID)
	mine := x.gs.MineByID(a.MineID)
	if u == nil || mine == nil {
		return internalf("harvest participants %d/%d vanished", a.UnitID, a.MineID)
	}
	u.Harvesting = intPtr(mine.ID)
	mine.WorkerID = intPtr(u.ID)
	x.diff.add(HarvestStarted{UnitID: u.ID, MineID: mine.ID})
	return nil
}

func (x *applier) settle(a SettleAction) error {
	u := x.gs.UnitByID(a.UnitID)
	if u == nil {
		return internalf("settler %d vanished before settle", a.UnitID)
	}
	tile := x.gs.Map.TileAt(a.Target)
	if tile == nil {
		return internalf("settle target %s has no tile", a.Target)
	}
	owner, id := u.Tribe, u.ID
	tile.Owner = owner
	x.removeUnit(id)
	x.diff.add(TerritoryExpanded{Position: a.Target, Tribe: owner})
	x.diff.add(UnitConsumed{UnitID: id})
	return nil
}

// advanceTurn collects income, eliminates castle-less tribes, checks for a
// winner and, failing that, hands the turn to the next living tribe.
func (x *applier) advanceTurn() error {
	gs := x.gs

	income := CollectIncome(gs)
	for _, t := range AllTribes() {
		amount := income[t]
		if amount <= 0 {
			continue
		}
		ts := gs.Tribes[t]
		if ts == nil {
			return internalf("income for unknown tribe %s", t)
		}
		ts.Gold += amount
		x.diff.add(IncomeCollected{Tribe: t, Amount: amount})
	}

	for _, t := range AllTribes() {
		if !gs.TribeAlive(t) || HasCastle(gs, t) {
			continue
		}
		gs.Tribes[t].Alive = false
		for _, u := range gs.UnitsOf(t) {
			x.removeUnit(u.ID)
		}
		x.diff.add(TribeEliminated{Tribe: t})
	}

	if winner, ok := Winner(gs); ok {
		gs.Status = StatusFinished
		x.diff.add(GameOver{Winner: winner})
		return nil
	}
	if len(gs.AliveTribes()) == 0 {
		return internalf("no tribe left alive on turn %d", gs.Turn)
	}

	current := gs.CurrentTribe
	next := NextTribe(gs, current)
	if next.turnIndex() <= current.turnIndex() {
		gs.Turn++
		for i := range gs.Units {
			gs.Units[i].CanAct = true
		}
	}
	gs.CurrentTribe = next
	x.diff.add(TurnAdvanced{Turn: gs.Turn, CurrentTribe: next})
	return nil
}

func (x *applier) debit(cost int) error {
	ts := x.gs.Tribes[x.tribe]
	if ts == nil {
		return internalf("tribe %s has no economy", x.tribe)
	}
	if ts.Gold < cost {
		return internalf("%s gold %d below validated cost %d", x.tribe, ts.Gold, cost)
	}
	ts.Gold -= cost
	return nil
}

// relocate moves u to c, releasing any mine it was working.
func (x *applier) relocate(u *Unit, c Coord) {
	if u.Position != c {
		x.detach(u)
	}
	u.Position = c
}

func (x *applier) detach(u *Unit) {
	if u.Harvesting != nil {
		if mine := x.gs.MineByID(*u.Harvesting); mine != nil && mine.WorkerID != nil && *mine.WorkerID == u.ID {
			mine.WorkerID = nil
		}
		u.Harvesting = nil
	}
	for i := range x.gs.GoldMines {
		if w := x.gs.GoldMines[i].WorkerID; w != nil && *w == u.ID {
			x.gs.GoldMines[i].WorkerID = nil
		}
	}
}

// removeUnit deletes the unit with the given id and clears any mine link to it.
func (x *applier) removeUnit(id int) {
	units := x.gs.Units[:0]
	for i := range x.gs.Units {
		u := x.gs.Units[i]
		if u.ID == id {
			x.detach(&u)
			continue
		}
		units = append(units, u)
	}
	x.gs.Units = units
}
