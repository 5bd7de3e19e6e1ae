package tribes

import (
	"bytes"
	"testing"
)

func TestNewGameSetup(t *testing.T) {
	gs, err := NewGame("g1", NewGameOptions{Seed: 7})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := gs.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if gs.Turn != 1 || gs.CurrentTribe != Red || gs.Status != StatusInProgress {
		t.Errorf("unexpected header: turn=%d current=%s status=%s", gs.Turn, gs.CurrentTribe, gs.Status)
	}
	if len(gs.Map.Tiles) != 400 {
		t.Errorf("expected 400 tiles, got %d", len(gs.Map.Tiles))
	}
	if len(gs.GoldMines) != 8 {
		t.Errorf("expected 8 mines, got %d", len(gs.GoldMines))
	}
	for _, mine := range gs.GoldMines {
		if tile := gs.Map.TileAt(mine.Position); tile == nil || tile.Terrain != GoldMine {
			t.Errorf("mine %d at %s is not on a GOLD_MINE tile", mine.ID, mine.Position)
		}
	}

	castles := map[Tribe]Coord{Red: C(0, 0), Blue: C(19, 0), Green: C(0, 19), Yellow: C(19, 19)}
	knights := map[Tribe]Coord{Red: C(1, 0), Blue: C(18, 0), Green: C(1, 19), Yellow: C(18, 19)}
	for _, tribe := range AllTribes() {
		if gs.Gold(tribe) != StartingGold || !gs.TribeAlive(tribe) {
			t.Errorf("%s: gold %d alive %v", tribe, gs.Gold(tribe), gs.TribeAlive(tribe))
		}
		bs := gs.BuildingsOf(tribe)
		if len(bs) != 1 || bs[0].Type != Castle || bs[0].Position != castles[tribe] || bs[0].HP != 10 {
			t.Errorf("%s: unexpected buildings %+v", tribe, bs)
		}
		us := gs.UnitsOf(tribe)
		if len(us) != 1 || us[0].Type != Knight || us[0].Position != knights[tribe] {
			t.Errorf("%s: unexpected units %+v", tribe, us)
		}
		if us[0].CanAct != (tribe == Red) {
			t.Errorf("%s knight can_act = %v", tribe, us[0].CanAct)
		}
		for _, c := range startingTerritory(tribe, 20, 20) {
			tile := gs.Map.TileAt(c)
			if tile.Owner != tribe {
				t.Errorf("%s: start tile %s is owned by %q", tribe, c, tile.Owner)
			}
			if tile.Terrain == Water || tile.Terrain == Mountain {
				t.Errorf("%s: start tile %s is %s", tribe, c, tile.Terrain)
			}
		}
	}
}

func TestNewGameTerritoryIsSymmetric(t *testing.T) {
	sizes := []NewGameOptions{
		{Seed: 7},
		{Width: 8, Height: 8, Seed: 1},
		{Width: 30, Height: 12, Seed: 3},
	}
	for _, opts := range sizes {
		gs, err := NewGame("sym", opts)
		if err != nil {
			t.Fatalf("NewGame(%+v): %v", opts, err)
		}
		want := gs.Territory(Red)
		if want != 6 {
			t.Errorf("%dx%d: RED territory = %d, want 6", gs.Map.Width, gs.Map.Height, want)
		}
		for _, tribe := range AllTribes() {
			if got := gs.Territory(tribe); got != want {
				t.Errorf("%dx%d: %s territory = %d, RED has %d", gs.Map.Width, gs.Map.Height, tribe, got, want)
			}
			for _, u := range gs.UnitsOf(tribe) {
				if gs.Map.TileAt(u.Position).Owner != tribe {
					t.Errorf("%s knight at %s starts outside its territory", tribe, u.Position)
				}
			}
		}
	}
}

func TestNewGameIsDeterministicPerSeed(t *testing.T) {
	a, err := NewGame("g", NewGameOptions{Seed: 99})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewGame("g", NewGameOptions{Seed: 99})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mustSave(t, a), mustSave(t, b)) {
		t.Error("same seed produced different games")
	}
}

func TestNewGameSizes(t *testing.T) {
	if _, err := NewGame("tiny", NewGameOptions{Width: 5, Height: 5}); err == nil {
		t.Error("expected a 5x5 map to be rejected")
	}
	gs, err := NewGame("wide", NewGameOptions{Width: 30, Height: 12, Seed: 3})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := gs.CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
	if b := gs.BuildingsOf(Yellow); len(b) != 1 || b[0].Position != C(29, 11) {
		t.Errorf("yellow castle: %+v", b)
	}
}
