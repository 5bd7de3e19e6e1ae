package tribes

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

const (
	DefaultMapWidth  = 20
	DefaultMapHeight = 20
	minMapSize       = 8
	startRadius      = 2
)

// referenceMines are the mine positions on a 20x20 map; other sizes scale
// them proportionally.
var referenceMines = []Coord{
	{5, 5}, {14, 5}, {5, 14}, {14, 14},
	{9, 9}, {10, 10},
	{9, 4}, {10, 15},
}

// NewGameOptions controls fresh game construction. Zero values select the
// defaults: a 20x20 map and a random seed.
type NewGameOptions struct {
	Width  int
	Height int
	Seed   int64
}

// NewGame builds a fresh, in-progress game. Each tribe starts in a corner
// with a castle, an adjacent knight, StartingGold and the same territory
// mirrored into its corner.
// Only RED's units may act on the first turn.
func NewGame(gameID string, opts NewGameOptions) (*GameState, error) {
	w, h := opts.Width, opts.Height
	if w == 0 {
		w = DefaultMapWidth
	}
	if h == 0 {
		h = DefaultMapHeight
	}
	if w < minMapSize || h < minMapSize {
		return nil, fmt.Errorf("map %dx%d is smaller than %dx%d", w, h, minMapSize, minMapSize)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	tiles := generateTerrain(w, h, seed)
	gm := GameMap{Width: w, Height: h, Tiles: tiles}

	var mines []Mine
	for _, ref := range referenceMines {
		c := Coord{Q: ref.Q * w / DefaultMapWidth, R: ref.R * h / DefaultMapHeight}
		if !gm.InBounds(c) || containsMine(mines, c) {
			continue
		}
		gm.TileAt(c).Terrain = GoldMine
		mines = append(mines, Mine{ID: len(mines) + 1, Position: c})
	}

	starts := startingPositions(w, h)
	for _, t := range AllTribes() {
		for _, c := range startingTerritory(t, w, h) {
			tile := gm.TileAt(c)
			tile.Owner = t
			if tile.Terrain != Grass && tile.Terrain != GoldMine {
				tile.Terrain = Grass
			}
		}
	}

	gs := &GameState{
		GameID:       gameID,
		Turn:         1,
		CurrentTribe: Red,
		Status:       StatusInProgress,
		Map:          gm,
		Tribes:       make(map[Tribe]*TribeState, 4),
		GoldMines:    mines,
		History:      []HistoryEntry{},
	}
	for i, t := range AllTribes() {
		home := starts[t]
		gs.Tribes[t] = &TribeState{Gold: StartingGold, Alive: true}
		gs.Buildings = append(gs.Buildings, Building{
			ID:       i + 1,
			Tribe:    t,
			Type:     Castle,
			Position: home,
			HP:       BuildingStatsOf(Castle).HP,
		})
		knight := Coord{Q: home.Q - 1, R: home.R}
		if home.Q == 0 {
			knight = Coord{Q: home.Q + 1, R: home.R}
		}
		gs.Units = append(gs.Units, Unit{
			ID:       i + 1,
			Tribe:    t,
			Type:     Knight,
			Position: knight,
			CanAct:   t == Red,
		})
	}
	return gs, nil
}

// startingTerritory returns the tiles t owns at the start. RED gets the
// in-bounds tiles within startRadius of its castle at (0,0); the other
// corners get that set mirrored across the map axes.
func startingTerritory(t Tribe, w, h int) []Coord {
	var out []Coord
	for q := 0; q <= startRadius; q++ {
		for r := 0; q+r <= startRadius; r++ {
			c := Coord{Q: q, R: r}
			switch t {
			case Blue:
				c.Q = w - 1 - q
			case Green:
				c.R = h - 1 - r
			case Yellow:
				c = Coord{Q: w - 1 - q, R: h - 1 - r}
			}
			out = append(out, c)
		}
	}
	return out
}

func startingPositions(w, h int) map[Tribe]Coord {
	return map[Tribe]Coord{
		Red:    {0, 0},
		Blue:   {w - 1, 0},
		Green:  {0, h - 1},
		Yellow: {w - 1, h - 1},
	}
}

func containsMine(mines []Mine, c Coord) bool {
	for _, m := range mines {
		if m.Position == c {
			return true
		}
	}
	return false
}

// generateTerrain lays out tiles in row-major order. Two noise layers decide
// where forests and mountains grow; low basins in the elevation layer become
// lakes.
func generateTerrain(w, h int, seed int64) []Tile {
	elevNoise := opensimplex.NewNormalized(seed)
	woodNoise := opensimplex.NewNormalized(seed + 1)

	tiles := make([]Tile, 0, w*h)
	for r := 0; r < h; r++ {
		for q := 0; q < w; q++ {
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 3, 0.12, 0.5)
			wood := octaveNoise(woodNoise, x, y, 2, 0.2, 0.5)

			terrain := Grass
			switch {
			case elev > 0.72:
				terrain = Mountain
			case elev < 0.2:
				terrain = Water
			case wood > 0.66:
				terrain = Forest
			}
			tiles = append(tiles, Tile{Q: q, R: r, Terrain: terrain})
		}
	}
	return tiles
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
