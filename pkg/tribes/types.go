package tribes

import (
	"fmt"
	"strings"
)

// Tribe is one of the four factions.
type Tribe string

const (
	Red    Tribe = "RED"
	Blue   Tribe = "BLUE"
	Green  Tribe = "GREEN"
	Yellow Tribe = "YELLOW"
)

// AllTribes returns the four tribes in fixed turn order.
func AllTribes() []Tribe {
	return []Tribe{Red, Blue, Green, Yellow}
}

// turnIndex returns the tribe's position in turn order, or -1.
func (t Tribe) turnIndex() int {
	switch t {
	case Red:
		return 0
	case Blue:
		return 1
	case Green:
		return 2
	case Yellow:
		return 3
	default:
		return -1
	}
}

// Valid reports whether t is one of the four tribes.
func (t Tribe) Valid() bool {
	return t.turnIndex() >= 0
}

// ParseTribe accepts a tribe name in any letter case.
func ParseTribe(s string) (Tribe, error) {
	t := Tribe(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tribe %q", s)
	}
	return t, nil
}

// Terrain is the terrain type of a tile.
type Terrain string

const (
	Grass    Terrain = "GRASS"
	Forest   Terrain = "FOREST"
	Mountain Terrain = "MOUNTAIN"
	Water    Terrain = "WATER"
	GoldMine Terrain = "GOLD_MINE"
)

func (t Terrain) Valid() bool {
	switch t {
	case Grass, Forest, Mountain, Water, GoldMine:
		return true
	}
	return false
}

// UnitType is the kind of a unit.
type UnitType string

const (
	Worker  UnitType = "WORKER"
	Settler UnitType = "SETTLER"
	Warrior UnitType = "WARRIOR"
	Archer  UnitType = "ARCHER"
	Knight  UnitType = "KNIGHT"
)

func (u UnitType) Valid() bool {
	_, ok := unitStats[u]
	return ok
}

// BuildingType is the kind of a building.
type BuildingType string

const (
	Castle   BuildingType = "CASTLE"
	Barracks BuildingType = "BARRACKS"
	Tower    BuildingType = "TOWER"
	Wall     BuildingType = "WALL"
)

func (b BuildingType) Valid() bool {
	_, ok := buildingStats[b]
	return ok
}

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	StatusLobby      GameStatus = "LOBBY"
	StatusInProgress GameStatus = "IN_PROGRESS"
	StatusFinished   GameStatus = "FINISHED"
)

func (s GameStatus) Valid() bool {
	switch s {
	case StatusLobby, StatusInProgress, StatusFinished:
		return true
	}
	return false
}

// UnitStats are the fixed cost, combat strength and movement range of a unit type.
type UnitStats struct {
	Cost     int
	Strength int
	Movement int
}

// BuildingStats are the fixed cost and hit points of a building type.
type BuildingStats struct {
	Cost int
	HP   int
}

var unitStats = map[UnitType]UnitStats{
	Worker:  {Cost: 25, Strength: 0, Movement: 2},
	Settler: {Cost: 50, Strength: 0, Movement: 2},
	Warrior: {Cost: 30, Strength: 3, Movement: 2},
	Archer:  {Cost: 40, Strength: 2, Movement: 2},
	Knight:  {Cost: 75, Strength: 6, Movement: 3},
}

var buildingStats = map[BuildingType]BuildingStats{
	Castle:   {Cost: 0, HP: 10},
	Barracks: {Cost: 100, HP: 5},
	Tower:    {Cost: 75, HP: 3},
	Wall:     {Cost: 25, HP: 5},
}

// StatsOf returns the stats for a unit type. Unknown types yield zero stats.
func StatsOf(u UnitType) UnitStats {
	return unitStats[u]
}

// BuildingStatsOf returns the stats for a building type.
func BuildingStatsOf(b BuildingType) BuildingStats {
	return buildingStats[b]
}

const (
	// GoldPerWorker is the income per harvesting worker per action cycle.
	GoldPerWorker = 10
	// StartingGold is each tribe's gold at game start.
	StartingGold = 100
	// ArcherRange is the maximum attack distance for archers.
	ArcherRange = 2
	// MeleeRange is the maximum attack distance for every other unit.
	MeleeRange = 1
	// TowerDefenseBonus is added to a defender per adjacent friendly tower.
	TowerDefenseBonus = 2
	// RangedPenalty is subtracted from an archer's strength when attacking at range.
	RangedPenalty = 1
)
