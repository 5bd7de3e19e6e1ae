//go:build integration

package bot

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/tribes/pkg/tribes"
)

// benchNumGames returns BENCH_GAMES env var as int, or the provided default.
func benchNumGames(defaultN int) int {
	if s := os.Getenv("BENCH_GAMES"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return defaultN
}

// benchVerbose returns true when BENCH_VERBOSE=1, enabling per-game logging.
func benchVerbose() bool {
	return os.Getenv("BENCH_VERBOSE") == "1"
}

// BenchmarkResult holds aggregate metrics for RED over a series of arena games.
type BenchmarkResult struct {
	Matchup     string
	NumGames    int
	Wins        int
	Draws       int
	Losses      int
	Survived    int
	Stalled     int
	Invalid     int
	Gold        []int
	WinTurns    []int
	GameLengths []int // actions per game
	Durations   []time.Duration
}

// WinRate returns the win rate as a percentage.
func (b *BenchmarkResult) WinRate() float64 {
	return float64(b.Wins) / float64(b.NumGames) * 100
}

// SurvivalRate returns the percentage of games RED finished alive.
func (b *BenchmarkResult) SurvivalRate() float64 {
	return float64(b.Survived) / float64(b.NumGames) * 100
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func stdDev(xs []int) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := float64(x) - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// MedianDuration returns the median wall-clock time per game.
func (b *BenchmarkResult) MedianDuration() time.Duration {
	if len(b.Durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(b.Durations))
	copy(sorted, b.Durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}

// runBenchmarkSuite runs numGames dry-run arena games with the given tribe config.
func runBenchmarkSuite(t *testing.T, matchup string, numGames int, tribeConfig string, maxTurns int) *BenchmarkResult {
	t.Helper()

	cfgMap, err := ParseTribeConfig(tribeConfig)
	if err != nil {
		t.Fatalf("tribe config: %v", err)
	}
	result := &BenchmarkResult{Matchup: matchup, NumGames: numGames}

	for i := range numGames {
		cfg := ArenaConfig{
			GameName:    matchup,
			TribeConfig: cfgMap,
			MaxTurns:    maxTurns,
			Seed:        int64(i + 1),
			DryRun:      true,
		}

		start := time.Now()
		game, err := RunGame(context.Background(), cfg, nil, nil)
		elapsed := time.Since(start)
		if err != nil {
			t.Fatalf("game %d failed: %v", i+1, err)
		}

		result.Durations = append(result.Durations, elapsed)
		result.GameLengths = append(result.GameLengths, game.Actions)
		result.Gold = append(result.Gold, game.Gold[tribes.Red])
		result.Invalid += game.Invalid[tribes.Red]
		if game.Stalled {
			result.Stalled++
		}
		if game.Final.TribeAlive(tribes.Red) {
			result.Survived++
		}
		switch game.Winner {
		case tribes.Red:
			result.Wins++
			result.WinTurns = append(result.WinTurns, game.Turns)
		case "":
			result.Draws++
		default:
			result.Losses++
		}

		if benchVerbose() {
			t.Logf("Game %d/%d: winner=%q turns=%d actions=%d red_gold=%d elapsed=%s",
				i+1, numGames, game.Winner, game.Turns, game.Actions, game.Gold[tribes.Red], elapsed.Round(time.Millisecond))
		}
	}
	return result
}

// logBenchmarkResults logs a results summary.
func logBenchmarkResults(t *testing.T, r *BenchmarkResult) {
	t.Helper()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n=== BENCHMARK: %s (%d games) ===\n", r.Matchup, r.NumGames))
	sb.WriteString(fmt.Sprintf("Win rate:     %d/%d (%.0f%%)\n", r.Wins, r.NumGames, r.WinRate()))
	sb.WriteString(fmt.Sprintf("Draws:        %d (stalled %d)\n", r.Draws, r.Stalled))
	sb.WriteString(fmt.Sprintf("Losses:       %d\n", r.Losses))
	sb.WriteString(fmt.Sprintf("Survival:     %d/%d (%.0f%%)\n", r.Survived, r.NumGames, r.SurvivalRate()))
	sb.WriteString(fmt.Sprintf("RED gold:     %.1f (stddev=%.1f)\n", mean(r.Gold), stdDev(r.Gold)))
	if len(r.WinTurns) > 0 {
		sb.WriteString(fmt.Sprintf("Avg win turn: %.1f\n", mean(r.WinTurns)))
	}
	sb.WriteString(fmt.Sprintf("Avg actions:  %.1f\n", mean(r.GameLengths)))
	sb.WriteString(fmt.Sprintf("Invalid:      %d\n", r.Invalid))
	sb.WriteString(fmt.Sprintf("Median Time:  %s\n", r.MedianDuration().Round(time.Millisecond)))
	t.Log(sb.String())
}

func TestBenchmarkGreedyVsHeuristic(t *testing.T) {
	r := runBenchmarkSuite(t, "greedy-vs-heuristic", benchNumGames(10), "red=greedy,*=heuristic", 150)
	logBenchmarkResults(t, r)
	if r.Invalid > 0 {
		t.Errorf("greedy proposed %d rejected actions", r.Invalid)
	}
}

func TestBenchmarkRushVsExpand(t *testing.T) {
	r := runBenchmarkSuite(t, "rush-vs-expand", benchNumGames(10), "red=rush,*=expand", 150)
	logBenchmarkResults(t, r)
}

func TestBenchmarkHeuristicVsRandom(t *testing.T) {
	r := runBenchmarkSuite(t, "heuristic-vs-random", benchNumGames(10), "red=heuristic,*=random", 150)
	logBenchmarkResults(t, r)
	if r.SurvivalRate() < 50 {
		t.Errorf("heuristic should usually outlive random players, survived %.0f%%", r.SurvivalRate())
	}
}

func BenchmarkArenaGame(b *testing.B) {
	cfgMap, _ := ParseTribeConfig("*=heuristic")
	for i := 0; i < b.N; i++ {
		_, err := RunGame(context.Background(), ArenaConfig{
			TribeConfig: cfgMap,
			MaxTurns:    50,
			Seed:        int64(i + 1),
			DryRun:      true,
		}, nil, nil)
		if err != nil {
			b.Fatal(err)
		}
	}
}
