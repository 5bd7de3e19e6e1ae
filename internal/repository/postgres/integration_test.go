//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/freeeve/tribes/internal/model"
	"github.com/freeeve/tribes/internal/testutil"
)

var testDB *sql.DB

func setup(t *testing.T) {
	t.Helper()
	if testDB == nil {
		testDB = testutil.SetupDB(t)
	}
	testutil.CleanupDB(t, testDB)
}

func createTestGame(t *testing.T, repo *GameRepo, name string) *model.Game {
	t.Helper()
	g, err := repo.Create(context.Background(), &model.Game{
		Name: name, Status: model.GameInProgress, Width: 20, Height: 20, Seed: 7,
		Turn: 1, CurrentTribe: "RED",
		Seats: []model.Seat{
			{Tribe: "RED", Controller: model.ControllerHuman},
			{Tribe: "BLUE", Controller: model.ControllerBot, Strategy: "heuristic"},
			{Tribe: "GREEN", Controller: model.ControllerBot, Strategy: "random"},
			{Tribe: "YELLOW", Controller: model.ControllerHuman},
		},
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return g
}

func TestGameCreateAndFind(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	ctx := context.Background()

	g := createTestGame(t, repo, "Skirmish")
	if g.ID == "" {
		t.Fatal("expected non-empty ID")
	}

	found, err := repo.FindByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.Name != "Skirmish" || found.Seed != 7 {
		t.Fatalf("unexpected game: %+v", found)
	}
	if len(found.Seats) != 4 || found.Seats[0].Tribe != "RED" || found.Seats[3].Tribe != "YELLOW" {
		t.Fatalf("expected four seats in tribe order, got %+v", found.Seats)
	}
	if found.Seats[1].Strategy != "heuristic" || !found.Seats[1].IsBot() {
		t.Errorf("expected heuristic bot seat, got %+v", found.Seats[1])
	}
}

func TestGameFindMissing(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)

	g, err := repo.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if g != nil {
		t.Fatalf("expected nil, got %+v", g)
	}
}

func TestGameProgressAndFinish(t *testing.T) {
	setup(t)
	repo := NewGameRepo(testDB)
	ctx := context.Background()
	g := createTestGame(t, repo, "Progress")

	if err := repo.UpdateProgress(ctx, g.ID, 4, "GREEN"); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if err := repo.SetFinished(ctx, g.ID, "GREEN"); err != nil {
		t.Fatalf("set finished: %v", err)
	}

	found, _ := repo.FindByID(ctx, g.ID)
	if found.Turn != 4 || found.CurrentTribe != "GREEN" {
		t.Errorf("progress not stored: %+v", found)
	}
	if found.Status != model.GameFinished || found.Winner != "GREEN" || found.FinishedAt == nil {
		t.Errorf("finish not stored: %+v", found)
	}

	finished, err := repo.List(ctx, model.GameFinished, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(finished) != 1 || finished[0].ID != g.ID {
		t.Fatalf("expected one finished game, got %d", len(finished))
	}
}

func TestGameDeleteCascades(t *testing.T) {
	setup(t)
	games := NewGameRepo(testDB)
	turns := NewTurnRepo(testDB)
	ctx := context.Background()
	g := createTestGame(t, games, "Doomed")

	if _, err := turns.AppendTurn(ctx, &model.Turn{GameID: g.ID, Seq: 0, Turn: 1, StateAfter: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := games.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := turns.ListTurns(ctx, g.ID)
	if len(list) != 0 {
		t.Fatalf("expected turns removed, got %d", len(list))
	}
}

func TestTurnLog(t *testing.T) {
	setup(t)
	games := NewGameRepo(testDB)
	turns := NewTurnRepo(testDB)
	ctx := context.Background()
	g := createTestGame(t, games, "Log")

	if _, err := turns.AppendTurn(ctx, &model.Turn{GameID: g.ID, Seq: 0, Turn: 1, StateAfter: json.RawMessage(`{"turn": 1}`)}); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}
	_, err := turns.AppendTurn(ctx, &model.Turn{
		GameID: g.ID, Seq: 1, Turn: 1, Tribe: "RED",
		Action:     json.RawMessage(`{"action": "MOVE", "unit_id": 1, "target": [2, 0]}`),
		Diff:       json.RawMessage(`{"changes": []}`),
		StateAfter: json.RawMessage(`{"turn": 1}`),
	})
	if err != nil {
		t.Fatalf("append turn: %v", err)
	}

	latest, err := turns.LatestTurn(ctx, g.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Seq != 1 || latest.Tribe != "RED" || len(latest.Action) == 0 {
		t.Fatalf("unexpected latest turn: %+v", latest)
	}

	list, err := turns.ListTurns(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Seq != 0 || list[0].Action != nil {
		t.Fatalf("expected snapshot then action, got %+v", list)
	}

	if _, err := turns.AppendTurn(ctx, &model.Turn{GameID: g.ID, Seq: 1, Turn: 1, StateAfter: json.RawMessage(`{}`)}); err == nil {
		t.Fatal("expected duplicate seq to fail")
	}
}

func TestLatestTurnMissing(t *testing.T) {
	setup(t)
	turns := NewTurnRepo(testDB)

	latest, err := turns.LatestTurn(context.Background(), "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil, got %+v", latest)
	}
}
