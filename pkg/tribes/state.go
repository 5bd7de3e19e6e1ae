package tribes

import "encoding/json"

// Tile is a single hex of the map. An empty Owner means unowned.
type Tile struct {
	Q       int
	R       int
	Terrain Terrain
	Owner   Tribe
}

// Coord returns the tile's coordinate.
func (t Tile) Coord() Coord {
	return Coord{Q: t.Q, R: t.R}
}

type tileJSON struct {
	Q       int     `json:"q"`
	R       int     `json:"r"`
	Terrain Terrain `json:"terrain"`
	Owner   *Tribe  `json:"owner"`
}

func (t Tile) MarshalJSON() ([]byte, error) {
	tj := tileJSON{Q: t.Q, R: t.R, Terrain: t.Terrain}
	if t.Owner != "" {
		owner := t.Owner
		tj.Owner = &owner
	}
	return json.Marshal(tj)
}

func (t *Tile) UnmarshalJSON(data []byte) error {
	var tj tileJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}
	*t = Tile{Q: tj.Q, R: tj.R, Terrain: tj.Terrain}
	if tj.Owner != nil {
		t.Owner = *tj.Owner
	}
	return nil
}

// Unit is a movable piece. Units have no hit points; combat is a single roll.
type Unit struct {
	ID         int      `json:"id"`
	Tribe      Tribe    `json:"tribe"`
	Type       UnitType `json:"type"`
	Position   Coord    `json:"position"`
	CanAct     bool     `json:"canAct"`
	Harvesting *int     `json:"harvesting,omitempty"` // mine id
}

// Building is a structure owned by a tribe.
type Building struct {
	ID       int          `json:"id"`
	Tribe    Tribe        `json:"tribe"`
	Type     BuildingType `json:"type"`
	Position Coord        `json:"position"`
	HP       int          `json:"hp"`
}

// Mine is a gold mine at a fixed position, harvested by at most one worker.
type Mine struct {
	ID       int   `json:"id"`
	Position Coord `json:"position"`
	WorkerID *int  `json:"workerId"`
}

// TribeState is a tribe's economy and survival flag.
type TribeState struct {
	Gold  int  `json:"gold"`
	Alive bool `json:"alive"`
}

// GameMap is the fixed-size rectangular grid of tiles.
type GameMap struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tiles"`
}

// TileAt returns the tile at c, or nil if none exists.
func (m *GameMap) TileAt(c Coord) *Tile {
	if !m.InBounds(c) {
		return nil
	}
	// Tiles are generated in row-major order; fall back to a scan for
	// documents that were written in a different order.
	if i := c.R*m.Width + c.Q; i < len(m.Tiles) && m.Tiles[i].Q == c.Q && m.Tiles[i].R == c.R {
		return &m.Tiles[i]
	}
	for i := range m.Tiles {
		if m.Tiles[i].Q == c.Q && m.Tiles[i].R == c.R {
			return &m.Tiles[i]
		}
	}
	return nil
}

// InBounds reports whether c lies within [0,width) x [0,height).
func (m *GameMap) InBounds(c Coord) bool {
	return c.Q >= 0 && c.Q < m.Width && c.R >= 0 && c.R < m.Height
}

// HistoryEntry records one applied action for audit and replay.
type HistoryEntry struct {
	Turn    int           `json:"turn"`
	Tribe   Tribe         `json:"tribe"`
	Action  ActionType    `json:"action"`
	Details ActionRequest `json:"details"`
}

// GameState is the complete authoritative state of a game.
type GameState struct {
	GameID       string                `json:"gameId"`
	Turn         int                   `json:"turn"`
	CurrentTribe Tribe                 `json:"currentTribe"`
	Status       GameStatus            `json:"status"`
	Map          GameMap               `json:"map"`
	Tribes       map[Tribe]*TribeState `json:"tribes"`
	Units        []Unit                `json:"units"`
	Buildings    []Building            `json:"buildings"`
	GoldMines    []Mine                `json:"goldMines"`
	History      []HistoryEntry        `json:"history"`
}

// UnitByID returns the unit with the given id, or nil.
func (gs *GameState) UnitByID(id int) *Unit {
	for i := range gs.Units {
		if gs.Units[i].ID == id {
			return &gs.Units[i]
		}
	}
	return nil
}

// UnitsAt returns all units standing on c.
func (gs *GameState) UnitsAt(c Coord) []*Unit {
	var out []*Unit
	for i := range gs.Units {
		if gs.Units[i].Position == c {
			out = append(out, &gs.Units[i])
		}
	}
	return out
}

// UnitsOf returns all units belonging to the given tribe.
func (gs *GameState) UnitsOf(t Tribe) []Unit {
	var out []Unit
	for _, u := range gs.Units {
		if u.Tribe == t {
			out = append(out, u)
		}
	}
	return out
}

// BuildingByID returns the building with the given id, or nil.
func (gs *GameState) BuildingByID(id int) *Building {
	for i := range gs.Buildings {
		if gs.Buildings[i].ID == id {
			return &gs.Buildings[i]
		}
	}
	return nil
}

// BuildingAt returns the building on c, or nil.
func (gs *GameState) BuildingAt(c Coord) *Building {
	for i := range gs.Buildings {
		if gs.Buildings[i].Position == c {
			return &gs.Buildings[i]
		}
	}
	return nil
}

// BuildingsOf returns all buildings belonging to the given tribe.
func (gs *GameState) BuildingsOf(t Tribe) []Building {
	var out []Building
	for _, b := range gs.Buildings {
		if b.Tribe == t {
			out = append(out, b)
		}
	}
	return out
}

// MineByID returns the gold mine with the given id, or nil.
func (gs *GameState) MineByID(id int) *Mine {
	for i := range gs.GoldMines {
		if gs.GoldMines[i].ID == id {
			return &gs.GoldMines[i]
		}
	}
	return nil
}

// MineAt returns the gold mine on c, or nil.
func (gs *GameState) MineAt(c Coord) *Mine {
	for i := range gs.GoldMines {
		if gs.GoldMines[i].Position == c {
			return &gs.GoldMines[i]
		}
	}
	return nil
}

// TribeAlive reports whether t exists in the game and has not been eliminated.
func (gs *GameState) TribeAlive(t Tribe) bool {
	ts := gs.Tribes[t]
	return ts != nil && ts.Alive
}

// AliveTribes returns the tribes still in the game, in turn order.
func (gs *GameState) AliveTribes() []Tribe {
	var out []Tribe
	for _, t := range AllTribes() {
		if gs.TribeAlive(t) {
			out = append(out, t)
		}
	}
	return out
}

// Gold returns the tribe's treasury, or 0 for an unknown tribe.
func (gs *GameState) Gold(t Tribe) int {
	if ts := gs.Tribes[t]; ts != nil {
		return ts.Gold
	}
	return 0
}

// Territory returns the number of tiles owned by t.
func (gs *GameState) Territory(t Tribe) int {
	n := 0
	for _, tile := range gs.Map.Tiles {
		if tile.Owner == t {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the state. Apply mutates a clone and swaps it
// in only on success, so a failed action never leaves partial changes behind.
func (gs *GameState) Clone() *GameState {
	c := &GameState{
		GameID:       gs.GameID,
		Turn:         gs.Turn,
		CurrentTribe: gs.CurrentTribe,
		Status:       gs.Status,
		Map: GameMap{
			Width:  gs.Map.Width,
			Height: gs.Map.Height,
		},
	}
	if gs.Map.Tiles != nil {
		c.Map.Tiles = make([]Tile, len(gs.Map.Tiles))
		copy(c.Map.Tiles, gs.Map.Tiles)
	}
	if gs.Tribes != nil {
		c.Tribes = make(map[Tribe]*TribeState, len(gs.Tribes))
		for k, v := range gs.Tribes {
			ts := *v
			c.Tribes[k] = &ts
		}
	}
	if gs.Units != nil {
		c.Units = make([]Unit, len(gs.Units))
		for i, u := range gs.Units {
			if u.Harvesting != nil {
				id := *u.Harvesting
				u.Harvesting = &id
			}
			c.Units[i] = u
		}
	}
	if gs.Buildings != nil {
		c.Buildings = make([]Building, len(gs.Buildings))
		copy(c.Buildings, gs.Buildings)
	}
	if gs.GoldMines != nil {
		c.GoldMines = make([]Mine, len(gs.GoldMines))
		for i, m := range gs.GoldMines {
			if m.WorkerID != nil {
				id := *m.WorkerID
				m.WorkerID = &id
			}
			c.GoldMines[i] = m
		}
	}
	// History entries are append-only and never mutated, so sharing their
	// request payloads is safe.
	if gs.History != nil {
		c.History = make([]HistoryEntry, len(gs.History))
		copy(c.History, gs.History)
	}
	return c
}

func intPtr(v int) *int {
	return &v
}
