package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/tribes/internal/repository"
)

// Key patterns for Redis game data.
func stateKey(gameID string) string { return "game:" + gameID + ":state" }
func lockKey(gameID string) string  { return "game:" + gameID + ":lock" }
func diffsKey(gameID string) string { return "game:" + gameID + ":diffs" }

// diffRetention bounds the replay list so long games do not grow without limit.
const diffRetention = 2000

// unlockScript deletes the lock only when it is still held by the caller.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SetGameState stores the live game state JSON.
func (c *Client) SetGameState(ctx context.Context, gameID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, stateKey(gameID), []byte(state), 0).Err()
}

// GetGameState retrieves the live game state JSON.
func (c *Client) GetGameState(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	return json.RawMessage(data), nil
}

// LockGame takes the per-game turn lock for owner. The lock expires after ttl
// so a crashed server cannot wedge a game.
func (c *Client) LockGame(ctx context.Context, gameID, owner string, ttl time.Duration) error {
	ok, err := c.rdb.SetNX(ctx, lockKey(gameID), owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("lock game: %w", err)
	}
	if !ok {
		return repository.ErrLockHeld
	}
	return nil
}

// UnlockGame releases the lock if owner still holds it.
func (c *Client) UnlockGame(ctx context.Context, gameID, owner string) error {
	if err := unlockScript.Run(ctx, c.rdb, []string{lockKey(gameID)}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("unlock game: %w", err)
	}
	return nil
}

// AppendDiff pushes a diff onto the game's replay list and returns its
// zero-based index.
func (c *Client) AppendDiff(ctx context.Context, gameID string, diff json.RawMessage) (int64, error) {
	n, err := c.rdb.RPush(ctx, diffsKey(gameID), []byte(diff)).Result()
	if err != nil {
		return 0, fmt.Errorf("append diff: %w", err)
	}
	if n > diffRetention {
		c.rdb.LTrim(ctx, diffsKey(gameID), n-diffRetention, -1)
	}
	return n - 1, nil
}

// Diffs returns the stored diffs starting at index from.
func (c *Client) Diffs(ctx context.Context, gameID string, from int64) ([]json.RawMessage, error) {
	vals, err := c.rdb.LRange(ctx, diffsKey(gameID), from, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list diffs: %w", err)
	}
	out := make([]json.RawMessage, len(vals))
	for i, v := range vals {
		out[i] = json.RawMessage(v)
	}
	return out, nil
}

// DeleteGameData removes all Redis data for a game.
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, stateKey(gameID), lockKey(gameID), diffsKey(gameID)).Err()
}
