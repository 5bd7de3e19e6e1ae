package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/freeeve/tribes/internal/model"
)

// ErrLockHeld is returned when another process holds a game's turn lock.
var ErrLockHeld = errors.New("game lock held")

// GameRepository defines game and seat data operations. FindByID returns
// nil, nil for an unknown id.
type GameRepository interface {
	Create(ctx context.Context, g *model.Game) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	List(ctx context.Context, status string, limit int) ([]model.Game, error)
	UpdateProgress(ctx context.Context, gameID string, turn int, currentTribe string) error
	SetFinished(ctx context.Context, gameID, winner string) error
	Delete(ctx context.Context, gameID string) error
}

// TurnRepository defines the append-only turn log.
type TurnRepository interface {
	AppendTurn(ctx context.Context, t *model.Turn) (*model.Turn, error)
	LatestTurn(ctx context.Context, gameID string) (*model.Turn, error)
	ListTurns(ctx context.Context, gameID string) ([]model.Turn, error)
}

// GameCache defines live game state operations (Redis).
type GameCache interface {
	SetGameState(ctx context.Context, gameID string, state json.RawMessage) error
	GetGameState(ctx context.Context, gameID string) (json.RawMessage, error)
	LockGame(ctx context.Context, gameID, owner string, ttl time.Duration) error
	UnlockGame(ctx context.Context, gameID, owner string) error
	AppendDiff(ctx context.Context, gameID string, diff json.RawMessage) (int64, error)
	Diffs(ctx context.Context, gameID string, from int64) ([]json.RawMessage, error)
	DeleteGameData(ctx context.Context, gameID string) error
}
