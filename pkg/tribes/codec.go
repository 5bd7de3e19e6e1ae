package tribes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Load decodes a persisted game document and checks its invariants. Any
// failure wraps ErrCorruptState.
func Load(data []byte) (*GameState, error) {
	var gs GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := gs.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	normalize(&gs)
	return &gs, nil
}

// Save encodes gs as an indented JSON document. Empty collections are written
// as [] so that Save(Load(Save(gs))) is byte-identical to Save(gs).
func Save(gs *GameState) ([]byte, error) {
	out := *gs
	normalize(&out)
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode game state: %w", err)
	}
	return data, nil
}

func normalize(gs *GameState) {
	if gs.Map.Tiles == nil {
		gs.Map.Tiles = []Tile{}
	}
	if gs.Tribes == nil {
		gs.Tribes = map[Tribe]*TribeState{}
	}
	if gs.Units == nil {
		gs.Units = []Unit{}
	}
	if gs.Buildings == nil {
		gs.Buildings = []Building{}
	}
	if gs.GoldMines == nil {
		gs.GoldMines = []Mine{}
	}
	if gs.History == nil {
		gs.History = []HistoryEntry{}
	}
}

// CheckInvariants reports every structural invariant gs violates, joined
// into one error. It returns nil for a consistent state.
func (gs *GameState) CheckInvariants() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if gs.Turn < 1 {
		bad("turn %d is below 1", gs.Turn)
	}
	if !gs.Status.Valid() {
		bad("unknown status %q", gs.Status)
	}

	m := &gs.Map
	if m.Width <= 0 || m.Height <= 0 {
		bad("map size %dx%d is not positive", m.Width, m.Height)
	} else if len(m.Tiles) != m.Width*m.Height {
		bad("map has %d tiles, want %d", len(m.Tiles), m.Width*m.Height)
	}
	seen := make(map[Coord]bool, len(m.Tiles))
	for _, t := range m.Tiles {
		c := t.Coord()
		if !m.InBounds(c) {
			bad("tile %s out of bounds", c)
		}
		if seen[c] {
			bad("duplicate tile %s", c)
		}
		seen[c] = true
		if !t.Terrain.Valid() {
			bad("tile %s has unknown terrain %q", c, t.Terrain)
		}
		if t.Owner != "" && !t.Owner.Valid() {
			bad("tile %s has unknown owner %q", c, t.Owner)
		}
	}

	for t, ts := range gs.Tribes {
		if !t.Valid() {
			bad("unknown tribe %q", t)
		}
		if ts == nil {
			bad("tribe %s has no economy", t)
			continue
		}
		if ts.Gold < 0 {
			bad("tribe %s has negative gold %d", t, ts.Gold)
		}
	}

	unitIDs := make(map[int]*Unit, len(gs.Units))
	for i := range gs.Units {
		u := &gs.Units[i]
		if unitIDs[u.ID] != nil {
			bad("duplicate unit id %d", u.ID)
		}
		unitIDs[u.ID] = u
		if !u.Tribe.Valid() {
			bad("unit %d has unknown tribe %q", u.ID, u.Tribe)
		}
		if !u.Type.Valid() {
			bad("unit %d has unknown type %q", u.ID, u.Type)
		}
		if !m.InBounds(u.Position) {
			bad("unit %d at %s is out of bounds", u.ID, u.Position)
		}
	}

	buildingIDs := make(map[int]bool, len(gs.Buildings))
	for _, b := range gs.Buildings {
		if buildingIDs[b.ID] {
			bad("duplicate building id %d", b.ID)
		}
		buildingIDs[b.ID] = true
		if !b.Tribe.Valid() {
			bad("building %d has unknown tribe %q", b.ID, b.Tribe)
		}
		if !b.Type.Valid() {
			bad("building %d has unknown type %q", b.ID, b.Type)
		}
		if !m.InBounds(b.Position) {
			bad("building %d at %s is out of bounds", b.ID, b.Position)
		}
	}

	mineIDs := make(map[int]bool, len(gs.GoldMines))
	for _, mine := range gs.GoldMines {
		if mineIDs[mine.ID] {
			bad("duplicate mine id %d", mine.ID)
		}
		mineIDs[mine.ID] = true
		if mine.WorkerID == nil {
			continue
		}
		w := unitIDs[*mine.WorkerID]
		switch {
		case w == nil:
			bad("mine %d references missing unit %d", mine.ID, *mine.WorkerID)
		case w.Type != Worker:
			bad("mine %d is worked by %s unit %d", mine.ID, w.Type, w.ID)
		case w.Position != mine.Position:
			bad("mine %d at %s is worked by unit %d at %s", mine.ID, mine.Position, w.ID, w.Position)
		}
	}
	for _, u := range gs.Units {
		if u.Harvesting == nil {
			continue
		}
		mine := gs.MineByID(*u.Harvesting)
		if mine == nil || mine.WorkerID == nil || *mine.WorkerID != u.ID {
			bad("unit %d claims mine %d without a matching link", u.ID, *u.Harvesting)
		}
	}

	alive := gs.AliveTribes()
	if gs.Status == StatusFinished {
		if len(alive) != 1 {
			bad("finished game has %d living tribes, want 1", len(alive))
		}
	} else if !gs.TribeAlive(gs.CurrentTribe) {
		bad("current tribe %q is not alive", gs.CurrentTribe)
	}

	return errors.Join(errs...)
}
