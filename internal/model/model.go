package model

import (
	"encoding/json"
	"time"
)

// Game status values stored in the games table. They mirror the engine's
// status tags so rows and state documents agree.
const (
	GameInProgress = "IN_PROGRESS"
	GameFinished   = "FINISHED"
)

// Seat controller kinds.
const (
	ControllerHuman = "human"
	ControllerBot   = "bot"
)

// Game is the durable summary row of one match.
type Game struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Status       string     `json:"status" db:"status"`
	Winner       string     `json:"winner,omitempty" db:"winner"`
	Width        int        `json:"width" db:"width"`
	Height       int        `json:"height" db:"height"`
	Seed         int64      `json:"seed" db:"seed"`
	Turn         int        `json:"turn" db:"turn"`
	CurrentTribe string     `json:"current_tribe" db:"current_tribe"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Seats        []Seat     `json:"seats,omitempty" db:"-"`
}

// Seat binds a tribe in a game to whoever plays it.
type Seat struct {
	GameID     string `json:"game_id" db:"game_id"`
	Tribe      string `json:"tribe" db:"tribe"`
	Controller string `json:"controller" db:"controller"`
	Strategy   string `json:"strategy,omitempty" db:"strategy"`
}

// IsBot reports whether the seat is played by a built-in or external strategy.
func (s Seat) IsBot() bool {
	return s.Controller == ControllerBot
}

// SeatFor returns the seat for tribe, or nil.
func (g *Game) SeatFor(tribe string) *Seat {
	for i := range g.Seats {
		if g.Seats[i].Tribe == tribe {
			return &g.Seats[i]
		}
	}
	return nil
}

// Turn is one applied action in a game's log. Seq 0 holds the initial
// snapshot and has no action or diff.
type Turn struct {
	ID         string          `json:"id" db:"id"`
	GameID     string          `json:"game_id" db:"game_id"`
	Seq        int             `json:"seq" db:"seq"`
	Turn       int             `json:"turn" db:"turn"`
	Tribe      string          `json:"tribe,omitempty" db:"tribe"`
	Action     json.RawMessage `json:"action,omitempty" db:"action"`
	Diff       json.RawMessage `json:"diff,omitempty" db:"diff"`
	StateAfter json.RawMessage `json:"state_after,omitempty" db:"state_after"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
