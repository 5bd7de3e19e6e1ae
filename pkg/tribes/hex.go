package tribes

import (
	"encoding/json"
	"fmt"
)

// Coord is an axial hex coordinate. The third cube coordinate s = -q-r is
// derived on demand and never stored.
type Coord struct {
	Q int
	R int
}

// C is shorthand for Coord{Q: q, R: r}.
func C(q, r int) Coord {
	return Coord{Q: q, R: r}
}

// S returns the implicit third cube coordinate.
func (c Coord) S() int {
	return -c.Q - c.R
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Q, c.R)
}

// MarshalJSON encodes the coordinate as a two-element array [q, r].
func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Q, c.R})
}

// UnmarshalJSON decodes a two-element array [q, r].
func (c *Coord) UnmarshalJSON(data []byte) error {
	var arr []int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	if len(arr) != 2 {
		return fmt.Errorf("coordinate: want 2 elements, got %d", len(arr))
	}
	c.Q, c.R = arr[0], arr[1]
	return nil
}

// hexDirections are the six axial neighbor offsets.
var hexDirections = [6]Coord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent coordinates. Results may fall outside the map.
func (c Coord) Neighbors() [6]Coord {
	var out [6]Coord
	for i, d := range hexDirections {
		out[i] = Coord{Q: c.Q + d.Q, R: c.R + d.R}
	}
	return out
}

// HexNeighbors returns the six coordinates adjacent to (q, r).
func HexNeighbors(q, r int) [6]Coord {
	return C(q, r).Neighbors()
}

// HexDistance returns the cube-coordinate Chebyshev distance between a and b.
func HexDistance(a, b Coord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
