package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/tribes/internal/model"
	"github.com/freeeve/tribes/internal/repository"
)

type mockGameRepo struct {
	mu    sync.Mutex
	games map[string]*model.Game
	seq   int
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{games: make(map[string]*model.Game)}
}

func (m *mockGameRepo) Create(_ context.Context, g *model.Game) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *g
	cp.ID = fmt.Sprintf("game-%d", m.seq)
	cp.CreatedAt = time.Now()
	cp.Seats = nil
	for _, s := range g.Seats {
		s.GameID = cp.ID
		cp.Seats = append(cp.Seats, s)
	}
	m.games[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *mockGameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.Seats = append([]model.Seat(nil), g.Seats...)
	return &cp, nil
}

func (m *mockGameRepo) List(_ context.Context, status string, limit int) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Game
	for _, g := range m.games {
		if status == "" || g.Status == status {
			result = append(result, *g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockGameRepo) UpdateProgress(_ context.Context, gameID string, turn int, currentTribe string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		g.Turn = turn
		g.CurrentTribe = currentTribe
	}
	return nil
}

func (m *mockGameRepo) SetFinished(_ context.Context, gameID, winner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[gameID]; ok {
		g.Status = model.GameFinished
		g.Winner = winner
		now := time.Now()
		g.FinishedAt = &now
	}
	return nil
}

func (m *mockGameRepo) Delete(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, gameID)
	return nil
}

type mockTurnRepo struct {
	mu    sync.Mutex
	turns map[string][]model.Turn
}

func newMockTurnRepo() *mockTurnRepo {
	return &mockTurnRepo{turns: make(map[string][]model.Turn)}
}

func (m *mockTurnRepo) AppendTurn(_ context.Context, t *model.Turn) (*model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.turns[t.GameID] {
		if existing.Seq == t.Seq {
			return nil, fmt.Errorf("duplicate seq %d", t.Seq)
		}
	}
	cp := *t
	cp.ID = fmt.Sprintf("turn-%s-%d", t.GameID, t.Seq)
	cp.CreatedAt = time.Now()
	m.turns[t.GameID] = append(m.turns[t.GameID], cp)
	return &cp, nil
}

func (m *mockTurnRepo) LatestTurn(_ context.Context, gameID string) (*model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.turns[gameID]
	if len(turns) == 0 {
		return nil, nil
	}
	cp := turns[len(turns)-1]
	return &cp, nil
}

func (m *mockTurnRepo) ListTurns(_ context.Context, gameID string) ([]model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Turn(nil), m.turns[gameID]...), nil
}

func (m *mockTurnRepo) count(gameID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns[gameID])
}

type mockCache struct {
	mu     sync.Mutex
	states map[string]json.RawMessage
	locks  map[string]string
	diffs  map[string][]json.RawMessage
}

func newMockCache() *mockCache {
	return &mockCache{
		states: make(map[string]json.RawMessage),
		locks:  make(map[string]string),
		diffs:  make(map[string][]json.RawMessage),
	}
}

func (c *mockCache) SetGameState(_ context.Context, gameID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[gameID] = state
	return nil
}

func (c *mockCache) GetGameState(_ context.Context, gameID string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[gameID], nil
}

func (c *mockCache) LockGame(_ context.Context, gameID, owner string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if held, ok := c.locks[gameID]; ok && held != owner {
		return repository.ErrLockHeld
	}
	c.locks[gameID] = owner
	return nil
}

func (c *mockCache) UnlockGame(_ context.Context, gameID, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.locks[gameID] == owner {
		delete(c.locks, gameID)
	}
	return nil
}

func (c *mockCache) AppendDiff(_ context.Context, gameID string, diff json.RawMessage) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diffs[gameID] = append(c.diffs[gameID], diff)
	return int64(len(c.diffs[gameID]) - 1), nil
}

func (c *mockCache) Diffs(_ context.Context, gameID string, from int64) ([]json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.diffs[gameID]
	if from >= int64(len(d)) {
		return nil, nil
	}
	return append([]json.RawMessage(nil), d[from:]...), nil
}

func (c *mockCache) DeleteGameData(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, gameID)
	delete(c.locks, gameID)
	delete(c.diffs, gameID)
	return nil
}

type mockTokens struct{}

func (mockTokens) IssueSeatToken(gameID, tribe string) (string, error) {
	return "tok-" + gameID + "-" + tribe, nil
}

type recordedEvent struct {
	gameID    string
	eventType string
	data      any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) BroadcastGameEvent(gameID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{gameID, eventType, data})
}

func (b *recordingBroadcaster) ofType(eventType string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
