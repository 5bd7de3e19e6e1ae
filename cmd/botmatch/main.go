package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/bot"
	"github.com/freeeve/tribes/internal/config"
	"github.com/freeeve/tribes/internal/repository"
	"github.com/freeeve/tribes/internal/repository/postgres"
	"github.com/freeeve/tribes/internal/repository/sqlite"
	"github.com/freeeve/tribes/pkg/tribes"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var (
		tribeCfg   string
		matchup    string
		numGames   int
		workers    int
		dbURL      string
		sqlitePath string
		maxTurns   int
		seed       int64
		dryRun     bool
		jsonOut    bool
	)

	flag.StringVar(&tribeCfg, "t", "", "Tribe config (e.g. red=rush,*=heuristic)")
	flag.StringVar(&matchup, "matchup", "", "Shorthand strategy-vs-strategy (e.g. rush-vs-greedy)")
	flag.IntVar(&numGames, "n", 1, "Number of games to run")
	flag.IntVar(&workers, "workers", 1, "Concurrency (parallel games)")
	flag.StringVar(&dbURL, "db", "", "Postgres URL (or use DATABASE_URL env)")
	flag.StringVar(&sqlitePath, "sqlite", "", "Record games to this SQLite file instead of Postgres")
	flag.IntVar(&maxTurns, "max-turns", 200, "Max turns before a draw")
	flag.Int64Var(&seed, "seed", 0, "Base seed (0 = random)")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip database writes")
	flag.BoolVar(&jsonOut, "json", false, "Output results as JSON")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	// Resolve tribe config
	var assignment string
	switch {
	case tribeCfg != "":
		assignment = tribeCfg
	case matchup != "":
		assignment = matchupConfig(matchup)
	default:
		assignment = "*=heuristic"
	}
	strategies, err := bot.ParseTribeConfig(assignment)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad tribe config")
	}

	label := buildLabel(strategies)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var (
		gameRepo repository.GameRepository
		turnRepo repository.TurnRepository
	)
	if !dryRun {
		if sqlitePath == "" {
			sqlitePath = cfg.SQLitePath
		}
		if sqlitePath != "" {
			store, err := sqlite.Open(sqlitePath)
			if err != nil {
				log.Fatal().Err(err).Msg("SQLite open failed")
			}
			defer store.Close()
			gameRepo, turnRepo = store, store
		} else {
			if dbURL == "" {
				dbURL = cfg.DatabaseURL
			}
			db, err := postgres.Connect(dbURL)
			if err != nil {
				log.Fatal().Err(err).Msg("Database connection failed")
			}
			defer db.Close()
			gameRepo, turnRepo = postgres.NewGameRepo(db), postgres.NewTurnRepo(db)
		}
	}

	// Run games
	results := make([]*bot.ArenaResult, numGames)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(workers, 1))
	errCount := 0

	for i := 0; i < numGames; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			gameSeed := seed
			if seed != 0 {
				gameSeed = seed + int64(idx)
			}

			arenaCfg := bot.ArenaConfig{
				GameName:    fmt.Sprintf("%s #%d", label, idx+1),
				TribeConfig: strategies,
				MaxTurns:    maxTurns,
				Seed:        gameSeed,
				Width:       cfg.MapWidth,
				Height:      cfg.MapHeight,
				DryRun:      dryRun,
				Options:     bot.Options{StrategyDir: cfg.StrategyDir, Timeout: cfg.BotTurnTimeout},
			}

			result, err := bot.RunGame(ctx, arenaCfg, gameRepo, turnRepo)
			if err != nil {
				log.Error().Err(err).Int("game", idx+1).Msg("Game failed")
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			mu.Lock()
			results[idx] = result
			mu.Unlock()

			log.Info().Int("game", idx+1).Str("winner", string(result.Winner)).Int("turns", result.Turns).
				Int("actions", result.Actions).Bool("stalled", result.Stalled).Msg("Game completed")
		}(i)
	}

	wg.Wait()

	if jsonOut {
		printJSON(results, numGames, errCount)
	} else {
		printSummary(results, strategies, maxTurns, errCount, label, dryRun)
	}
}

// matchupConfig turns "rush-vs-greedy" into a config giving RED the first
// strategy and the other tribes the second.
func matchupConfig(s string) string {
	parts := strings.SplitN(s, "-vs-", 2)
	if len(parts) != 2 {
		return "*=" + s
	}
	return fmt.Sprintf("red=%s,*=%s", parts[0], parts[1])
}

func buildLabel(strategies map[tribes.Tribe]string) string {
	counts := make(map[string]int)
	for _, s := range strategies {
		counts[s]++
	}
	if len(counts) == 1 {
		for s := range counts {
			return fmt.Sprintf("botmatch: all-%s", s)
		}
	}

	var parts []string
	for s, c := range counts {
		name := s
		if c > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", c, name))
	}
	sort.Strings(parts)
	return "botmatch: " + strings.Join(parts, " vs ")
}

func printSummary(results []*bot.ArenaResult, strategies map[tribes.Tribe]string, maxTurns, errCount int, label string, dryRun bool) {
	type stats struct {
		wins      int
		draws     int
		survived  int
		totalGold int
		invalid   int
		games     int
	}

	byTribe := make(map[tribes.Tribe]*stats)
	for _, t := range tribes.AllTribes() {
		byTribe[t] = &stats{}
	}

	completed, stalled := 0, 0
	for _, r := range results {
		if r == nil {
			continue
		}
		completed++
		if r.Stalled {
			stalled++
		}
		for _, t := range tribes.AllTribes() {
			s := byTribe[t]
			s.games++
			s.totalGold += r.Gold[t]
			s.invalid += r.Invalid[t]
			switch {
			case r.Winner == t:
				s.wins++
			case r.Winner == "":
				s.draws++
			case r.Final != nil && r.Final.TribeAlive(t):
				s.survived++
			}
		}
	}

	fmt.Printf("\nResults (%d games, max turns %d):\n", completed, maxTurns)
	if errCount > 0 {
		fmt.Printf("  (%d games failed)\n", errCount)
	}
	if stalled > 0 {
		fmt.Printf("  (%d games stalled)\n", stalled)
	}

	for _, t := range tribes.AllTribes() {
		s := byTribe[t]
		avgGold := 0.0
		if s.games > 0 {
			avgGold = float64(s.totalGold) / float64(s.games)
		}
		fmt.Printf("  %-7s (%s):  %d wins, %d draws, %d survived, %d invalid  -- avg gold: %.1f\n",
			t, strategies[t], s.wins, s.draws, s.survived, s.invalid, avgGold)
	}

	if !dryRun && completed > 0 {
		fmt.Printf("\nGames saved to database as \"%s #1\" through \"#%d\"\n", label, completed)
	}
}

// gameSummary is the JSON view of one result, without the final state.
type gameSummary struct {
	GameID   string                  `json:"game_id,omitempty"`
	Winner   tribes.Tribe            `json:"winner,omitempty"`
	Stalled  bool                    `json:"stalled,omitempty"`
	Turns    int                     `json:"turns"`
	Actions  int                     `json:"actions"`
	Invalid  map[tribes.Tribe]int    `json:"invalid"`
	Gold     map[tribes.Tribe]int    `json:"gold"`
	Units    map[tribes.Tribe]int    `json:"units"`
	Strategy map[tribes.Tribe]string `json:"strategy"`
}

func printJSON(results []*bot.ArenaResult, total, errCount int) {
	summaries := make([]*gameSummary, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		summaries = append(summaries, &gameSummary{
			GameID: r.GameID, Winner: r.Winner, Stalled: r.Stalled, Turns: r.Turns, Actions: r.Actions,
			Invalid: r.Invalid, Gold: r.Gold, Units: r.Units, Strategy: r.Strategy,
		})
	}
	out := struct {
		Total   int            `json:"total"`
		Errors  int            `json:"errors"`
		Results []*gameSummary `json:"results"`
	}{
		Total:   total,
		Errors:  errCount,
		Results: summaries,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
