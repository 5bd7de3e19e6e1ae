package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/freeeve/tribes/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tribes.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newGame(t *testing.T, db *DB, name string) *model.Game {
	t.Helper()
	g, err := db.Create(context.Background(), &model.Game{
		Name: name, Status: model.GameInProgress, Width: 20, Height: 20, Seed: 11,
		Turn: 1, CurrentTribe: "RED",
		Seats: []model.Seat{
			{Tribe: "YELLOW", Controller: model.ControllerBot, Strategy: "random"},
			{Tribe: "RED", Controller: model.ControllerHuman},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return g
}

func TestCreateAndFind(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	g := newGame(t, db, "Local")

	if g.ID == "" || g.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", g)
	}
	found, err := db.FindByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Name != "Local" || found.Seed != 11 || found.FinishedAt != nil {
		t.Fatalf("unexpected game %+v", found)
	}
	if !found.CreatedAt.Equal(g.CreatedAt) {
		t.Errorf("created_at %v, want %v", found.CreatedAt, g.CreatedAt)
	}
	if len(found.Seats) != 2 || found.Seats[0].Tribe != "RED" || found.Seats[1].Strategy != "random" {
		t.Fatalf("seats not in tribe order: %+v", found.Seats)
	}
}

func TestFindMissing(t *testing.T) {
	db := openTestDB(t)
	g, err := db.FindByID(context.Background(), "nope")
	if err != nil || g != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", g, err)
	}
}

func TestProgressFinishAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a := newGame(t, db, "A")
	newGame(t, db, "B")

	if err := db.UpdateProgress(ctx, a.ID, 9, "BLUE"); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := db.SetFinished(ctx, a.ID, "BLUE"); err != nil {
		t.Fatalf("finish: %v", err)
	}

	found, _ := db.FindByID(ctx, a.ID)
	if found.Turn != 9 || found.Winner != "BLUE" || found.Status != model.GameFinished || found.FinishedAt == nil {
		t.Fatalf("unexpected game %+v", found)
	}

	all, err := db.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 games, got %d", len(all))
	}
	finished, _ := db.List(ctx, model.GameFinished, 10)
	if len(finished) != 1 || finished[0].ID != a.ID {
		t.Fatalf("expected only A finished, got %+v", finished)
	}
}

func TestTurnLog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	g := newGame(t, db, "Log")

	if latest, err := db.LatestTurn(ctx, g.ID); err != nil || latest != nil {
		t.Fatalf("expected no turns, got %+v, %v", latest, err)
	}

	if _, err := db.AppendTurn(ctx, &model.Turn{GameID: g.ID, Seq: 0, Turn: 1, StateAfter: json.RawMessage(`{"turn":1}`)}); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}
	if _, err := db.AppendTurn(ctx, &model.Turn{
		GameID: g.ID, Seq: 1, Turn: 1, Tribe: "RED",
		Action:     json.RawMessage(`{"action":"MOVE"}`),
		Diff:       json.RawMessage(`{"changes":[]}`),
		StateAfter: json.RawMessage(`{"turn":1}`),
	}); err != nil {
		t.Fatalf("append turn: %v", err)
	}
	if _, err := db.AppendTurn(ctx, &model.Turn{GameID: g.ID, Seq: 1, Turn: 1, StateAfter: json.RawMessage(`{}`)}); err == nil {
		t.Fatal("expected duplicate seq to be rejected")
	}

	latest, err := db.LatestTurn(ctx, g.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Seq != 1 || string(latest.Action) != `{"action":"MOVE"}` {
		t.Fatalf("unexpected latest %+v", latest)
	}

	turns, err := db.ListTurns(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 2 || turns[0].Action != nil || turns[0].Diff != nil {
		t.Fatalf("unexpected turns %+v", turns)
	}
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	g := newGame(t, db, "Gone")
	db.AppendTurn(ctx, &model.Turn{GameID: g.ID, Seq: 0, Turn: 1, StateAfter: json.RawMessage(`{}`)})

	if err := db.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	found, _ := db.FindByID(ctx, g.ID)
	turns, _ := db.ListTurns(ctx, g.ID)
	if found != nil || len(turns) != 0 {
		t.Fatal("expected game and turns removed")
	}
}
