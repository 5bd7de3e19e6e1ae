package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/bot"
	"github.com/freeeve/tribes/pkg/tribes"
)

func main() {
	url := flag.String("url", "http://localhost:8010", "server base URL")
	local := flag.String("local", "RED=heuristic", "seats played by this process (e.g. RED=heuristic,BLUE=random)")
	server := flag.String("server", "*=random", "strategies for the remaining seats, run by the server")
	name := flag.String("name", "Remote bot game", "game name")
	seed := flag.Int64("seed", 0, "map seed (0 = server default)")
	maxTurns := flag.Int("max-turns", 200, "stop after this many turns")
	strategyDir := flag.String("strategy-dir", "strategies", "directory for external strategy programs")
	timeout := flag.Duration("timeout", 10*time.Second, "per-decision timeout for external strategies")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	localCfg, err := parseSeats(*local)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad -local")
	}
	serverCfg, err := bot.ParseTribeConfig(*server)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad -server")
	}

	opts := bot.Options{StrategyDir: *strategyDir, Timeout: *timeout}
	strategies := make(map[tribes.Tribe]bot.Strategy, len(localCfg))
	for t, n := range localCfg {
		s, err := bot.StrategyFor(n, opts)
		if err != nil {
			log.Fatal().Err(err).Str("tribe", string(t)).Msg("Unknown strategy")
		}
		strategies[t] = s
		delete(serverCfg, t)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	orch := bot.NewOrchestrator(bot.OrchestratorConfig{
		BaseURL:  *url,
		Local:    strategies,
		Server:   serverCfg,
		MaxTurns: *maxTurns,
	})
	result, err := orch.Run(ctx, *name, *seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Bot orchestrator failed")
	}
	log.Info().Str("gameId", result.GameID).Str("winner", string(result.Winner)).
		Int("turns", result.Turns).Int("submitted", result.Submitted).Int("rejected", result.Rejected).
		Msg("Bot game completed")
}

// parseSeats parses "RED=heuristic,BLUE=random" without filling in the
// unnamed tribes.
func parseSeats(s string) (map[tribes.Tribe]string, error) {
	all, err := bot.ParseTribeConfig(s + ",*=")
	if err != nil {
		return nil, err
	}
	out := make(map[tribes.Tribe]string)
	for t, n := range all {
		if n != "" {
			out[t] = n
		}
	}
	return out, nil
}
