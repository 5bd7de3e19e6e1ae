package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/tribes/pkg/tribes"
)

// flatGame returns a seeded 20x20 game with all non-mine terrain set to grass.
func flatGame(t *testing.T) *tribes.GameState {
	t.Helper()
	gs, err := tribes.NewGame("bot-test", tribes.NewGameOptions{Seed: 7})
	require.NoError(t, err)
	for i := range gs.Map.Tiles {
		if gs.Map.Tiles[i].Terrain != tribes.GoldMine {
			gs.Map.Tiles[i].Terrain = tribes.Grass
		}
	}
	return gs
}

func addUnit(gs *tribes.GameState, id int, tribe tribes.Tribe, ut tribes.UnitType, c tribes.Coord) {
	gs.Units = append(gs.Units, tribes.Unit{ID: id, Tribe: tribe, Type: ut, Position: c})
}

func TestStrategyFor(t *testing.T) {
	for _, name := range Names() {
		s, err := StrategyFor(name, Options{})
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
	}

	s, err := StrategyFor("external:play.sh", Options{StrategyDir: "/opt/strategies"})
	require.NoError(t, err)
	assert.Equal(t, "external:play.sh", s.Name())
	assert.Equal(t, "/opt/strategies/play.sh", s.(*ExternalStrategy).program)

	_, err = StrategyFor("telepathy", Options{})
	assert.Error(t, err)
}

func TestBuiltinsOpenWithExpectedTraining(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     tribes.UnitType
	}{
		{HeuristicStrategy{}, tribes.Worker},
		{RushStrategy{}, tribes.Warrior},
		{ExpandStrategy{}, tribes.Settler},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.Name(), func(t *testing.T) {
			gs := flatGame(t)
			req, err := tt.strategy.Decide(context.Background(), gs, tribes.Red)
			require.NoError(t, err)
			require.Equal(t, tribes.ActionTrain, req.Action)
			require.NotNil(t, req.UnitType)
			assert.Equal(t, tt.want, *req.UnitType)
			assert.NoError(t, tribes.Validate(gs, tribes.Red, req))
		})
	}
}

func TestBuiltinsOnlyProposeLegalActions(t *testing.T) {
	SeedBotRng(3)
	defer ResetBotRng()

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := StrategyFor(name, Options{})
			require.NoError(t, err)

			mgr := tribes.NewManager(flatGame(t), tribes.NewRandDice(1))
			for i := 0; i < 60 && mgr.State().Status == tribes.StatusInProgress; i++ {
				tribe := mgr.State().CurrentTribe
				req, err := s.Decide(context.Background(), mgr.State(), tribe)
				if errors.Is(err, ErrNoLegalAction) {
					// A tribe with no units and too little gold is stuck.
					assert.Empty(t, tribes.LegalActions(mgr.State(), tribe), "decision %d", i)
					return
				}
				require.NoError(t, err, "decision %d", i)
				_, err = mgr.Apply(tribe, req)
				require.NoError(t, err, "decision %d: %+v", i, req)
			}
		})
	}
}

func TestHeuristicHarvestsWhenOnOwnedMine(t *testing.T) {
	gs := flatGame(t)
	mine := gs.GoldMines[0]
	gs.Map.TileAt(mine.Position).Owner = tribes.Red
	addUnit(gs, 9, tribes.Red, tribes.Worker, mine.Position)

	req, err := HeuristicStrategy{}.Decide(context.Background(), gs, tribes.Red)
	require.NoError(t, err)
	assert.Equal(t, tribes.ActionHarvest, req.Action)
	assert.Equal(t, 9, *req.UnitID)
	assert.Equal(t, mine.ID, *req.MineID)
}

func TestRushAttacksAdjacentEnemy(t *testing.T) {
	gs := flatGame(t)
	addUnit(gs, 9, tribes.Red, tribes.Warrior, tribes.C(10, 3))
	addUnit(gs, 10, tribes.Blue, tribes.Worker, tribes.C(11, 3))

	req, err := RushStrategy{}.Decide(context.Background(), gs, tribes.Red)
	require.NoError(t, err)
	assert.Equal(t, tribes.ActionAttack, req.Action)
	assert.Equal(t, 10, *req.TargetID)
}

func TestGreedyPrefersSureKill(t *testing.T) {
	gs := flatGame(t)
	addUnit(gs, 9, tribes.Red, tribes.Knight, tribes.C(10, 3))
	addUnit(gs, 10, tribes.Blue, tribes.Settler, tribes.C(11, 3))

	req, err := GreedyStrategy{}.Decide(context.Background(), gs, tribes.Red)
	require.NoError(t, err)
	assert.Equal(t, tribes.ActionAttack, req.Action)
}

func TestRandomStrategyIsSeeded(t *testing.T) {
	gs := flatGame(t)

	SeedBotRng(99)
	a, err := RandomStrategy{}.Decide(context.Background(), gs, tribes.Red)
	require.NoError(t, err)
	SeedBotRng(99)
	b, err := RandomStrategy{}.Decide(context.Background(), gs, tribes.Red)
	require.NoError(t, err)
	ResetBotRng()

	assert.Equal(t, a, b)
}

func TestNoLegalAction(t *testing.T) {
	gs := flatGame(t)
	// Blue to move, but it is Red's turn: nothing is legal for Blue.
	_, err := RandomStrategy{}.Decide(context.Background(), gs, tribes.Blue)
	assert.ErrorIs(t, err, ErrNoLegalAction)
	_, err = FirstLegal(gs, tribes.Blue)
	assert.ErrorIs(t, err, ErrNoLegalAction)
}

func TestWinChance(t *testing.T) {
	gs := flatGame(t)
	warrior := tribes.Unit{ID: 20, Tribe: tribes.Red, Type: tribes.Warrior, Position: tribes.C(10, 3)}
	knight := tribes.Unit{ID: 21, Tribe: tribes.Red, Type: tribes.Knight, Position: tribes.C(10, 3)}
	archer := tribes.Unit{ID: 22, Tribe: tribes.Red, Type: tribes.Archer, Position: tribes.C(9, 3)}
	enemyWarrior := tribes.Unit{ID: 30, Tribe: tribes.Blue, Type: tribes.Warrior, Position: tribes.C(11, 3)}
	enemyWorker := tribes.Unit{ID: 31, Tribe: tribes.Blue, Type: tribes.Worker, Position: tribes.C(11, 3)}

	assert.InDelta(t, 15.0/36, winChance(gs, warrior, enemyWarrior), 1e-9)
	assert.InDelta(t, 1.0, winChance(gs, knight, enemyWorker), 1e-9)
	// Ranged archer: strength 2-1 against 3.
	assert.InDelta(t, 6.0/36, winChance(gs, archer, enemyWarrior), 1e-9)
}

func TestEvaluateRewardsMaterial(t *testing.T) {
	gs := flatGame(t)
	base := Evaluate(gs, tribes.Red)
	assert.InDelta(t, 0, base, 1e-9, "symmetric start should be even")

	gs.Tribes[tribes.Red].Gold += 50
	assert.Greater(t, Evaluate(gs, tribes.Red), base)
	assert.Less(t, Evaluate(gs, tribes.Blue), base)
}

func TestParseTribeConfig(t *testing.T) {
	cfg, err := ParseTribeConfig("red=rush, BLUE=greedy,*=random")
	require.NoError(t, err)
	assert.Equal(t, map[tribes.Tribe]string{
		tribes.Red: "rush", tribes.Blue: "greedy", tribes.Green: "random", tribes.Yellow: "random",
	}, cfg)

	cfg, err = ParseTribeConfig("")
	require.NoError(t, err)
	assert.Equal(t, "heuristic", cfg[tribes.Yellow])

	_, err = ParseTribeConfig("PURPLE=rush")
	assert.Error(t, err)
	_, err = ParseTribeConfig("rush")
	assert.Error(t, err)
}
