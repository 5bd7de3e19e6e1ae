package bot

import "github.com/freeeve/tribes/pkg/tribes"

// Evaluation weights. Gold is the unit of account; everything else is priced
// roughly at what it cost to acquire.
const (
	weightTerritory = 6.0
	weightIncome    = 40.0
	weightAlive     = 1000.0
)

// winChance returns the probability that attacker beats defender in one
// engagement: P(atk + d1 > def + d2) over two fair dice.
func winChance(gs *tribes.GameState, attacker, defender tribes.Unit) float64 {
	ranged := tribes.HexDistance(attacker.Position, defender.Position) > tribes.MeleeRange
	res := tribes.ResolveCombat(gs, &attacker, &defender, ranged, &tribes.SequenceDice{Rolls: []int{1}})
	margin := res.AttackerStrength - res.DefenderStrength
	wins := 0
	for a := 1; a <= 6; a++ {
		for d := 1; d <= 6; d++ {
			if margin+a > d {
				wins++
			}
		}
	}
	return float64(wins) / 36
}

// Evaluate scores the position from tribe's point of view: its material minus
// the average material of its living rivals.
func Evaluate(gs *tribes.GameState, tribe tribes.Tribe) float64 {
	own := material(gs, tribe)
	var rivals float64
	n := 0
	for _, t := range gs.AliveTribes() {
		if t != tribe {
			rivals += material(gs, t)
			n++
		}
	}
	if n > 0 {
		own -= rivals / float64(n)
	}
	return own
}

func material(gs *tribes.GameState, t tribes.Tribe) float64 {
	if !gs.TribeAlive(t) {
		return 0
	}
	score := weightAlive + float64(gs.Gold(t))
	for _, u := range gs.UnitsOf(t) {
		score += float64(tribes.StatsOf(u.Type).Cost)
	}
	for _, b := range gs.BuildingsOf(t) {
		score += float64(tribes.BuildingStatsOf(b.Type).Cost)
	}
	score += weightTerritory * float64(gs.Territory(t))
	score += weightIncome * float64(tribes.CollectIncome(gs)[t]) / tribes.GoldPerWorker
	return score
}
