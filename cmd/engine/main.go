// Command engine runs, validates or creates games stored as state documents.
//
//	engine run --state data/gamestate.json --tribe RED [--output diff.json] [--strategy heuristic]
//	engine validate --state data/gamestate.json --tribe RED [--strategy heuristic]
//	engine new [--output data/gamestate.json] [--id game_001]
//
// Exit codes: 0 success, 1 invalid move, 2 execution error.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/bot"
	"github.com/freeeve/tribes/internal/config"
	"github.com/freeeve/tribes/pkg/tribes"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitError   = 2
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run dispatches a verb and returns the process exit code.
func run(args []string, out io.Writer) int {
	if len(args) == 0 {
		usage(out)
		return exitInvalid
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(out, "Error loading config: %v\n", err)
		return exitError
	}

	switch args[0] {
	case "run":
		fs := flag.NewFlagSet("run", flag.ContinueOnError)
		fs.SetOutput(out)
		state := fs.String("state", "", "path to the state document (required)")
		tribe := fs.String("tribe", "", "tribe colour: RED, BLUE, GREEN or YELLOW (required)")
		output := fs.String("output", "diff.json", "output path for the diff")
		strategy := fs.String("strategy", "heuristic", "strategy name or external:<program>")
		if err := parseVerb(fs, args[1:], "state", "tribe"); err != nil {
			return exitError
		}
		return runTurn(out, *state, *tribe, *output, *strategy, cfg)
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(out)
		state := fs.String("state", "", "path to the state document (required)")
		tribe := fs.String("tribe", "", "tribe colour (required)")
		strategy := fs.String("strategy", "heuristic", "strategy name or external:<program>")
		if err := parseVerb(fs, args[1:], "state", "tribe"); err != nil {
			return exitError
		}
		return validateOnly(out, *state, *tribe, *strategy, cfg)
	case "new":
		fs := flag.NewFlagSet("new", flag.ContinueOnError)
		fs.SetOutput(out)
		output := fs.String("output", "data/gamestate.json", "output path")
		id := fs.String("id", "game_001", "game id")
		if err := parseVerb(fs, args[1:]); err != nil {
			return exitError
		}
		return createGame(out, *output, *id, cfg)
	default:
		usage(out)
		return exitInvalid
	}
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "usage: engine <run|validate|new> [flags]")
}

// parseVerb parses fs and checks that every required flag was given.
func parseVerb(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range required {
		if fs.Lookup(name).Value.String() == "" {
			fmt.Fprintf(fs.Output(), "Error: --%s is required\n", name)
			return fmt.Errorf("missing --%s", name)
		}
	}
	return nil
}

// decision loads the state and asks the strategy for tribe's action. A
// non-zero code means the caller should stop with it.
func decision(out io.Writer, statePath, tribeName, strategyName string, cfg *config.Config) (*tribes.GameState, tribes.Tribe, tribes.ActionRequest, int) {
	data, err := os.ReadFile(statePath)
	if err != nil {
		fmt.Fprintf(out, "Error loading game state: %v\n", err)
		return nil, "", tribes.ActionRequest{}, exitError
	}
	gs, err := tribes.Load(data)
	if err != nil {
		fmt.Fprintf(out, "Error loading game state: %v\n", err)
		return nil, "", tribes.ActionRequest{}, exitError
	}
	tribe, err := tribes.ParseTribe(tribeName)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return nil, "", tribes.ActionRequest{}, exitError
	}
	if gs.CurrentTribe != tribe {
		fmt.Fprintf(out, "Error: Not %s's turn (current: %s)\n", tribe, gs.CurrentTribe)
		return nil, "", tribes.ActionRequest{}, exitInvalid
	}

	s, err := bot.StrategyFor(strategyName, bot.Options{StrategyDir: cfg.StrategyDir, Timeout: cfg.BotTurnTimeout})
	if err != nil {
		fmt.Fprintf(out, "Error loading strategy: %v\n", err)
		return nil, "", tribes.ActionRequest{}, exitError
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.BotTurnTimeout+time.Second)
	defer cancel()
	req, err := s.Decide(ctx, gs, tribe)
	if err != nil {
		fmt.Fprintf(out, "Error executing strategy: %v\n", err)
		return nil, "", tribes.ActionRequest{}, exitError
	}
	return gs, tribe, req, exitOK
}

func runTurn(out io.Writer, statePath, tribeName, outputPath, strategyName string, cfg *config.Config) int {
	gs, tribe, req, code := decision(out, statePath, tribeName, strategyName, cfg)
	if code != exitOK {
		return code
	}
	if ok, reason := tribes.Check(gs, tribe, req); !ok {
		fmt.Fprintf(out, "Invalid move: %s\n", reason)
		return exitInvalid
	}

	mgr := tribes.NewManager(gs, nil)
	diff, err := mgr.Apply(tribe, req)
	if err != nil {
		fmt.Fprintf(out, "Failed to apply action: %v\n", err)
		if errors.Is(err, tribes.ErrInternal) {
			return exitError
		}
		return exitInvalid
	}

	// The diff goes first so a failed write never leaves an advanced state
	// without its diff.
	if err := writeIndented(outputPath, diff); err != nil {
		fmt.Fprintf(out, "Error writing diff: %v\n", err)
		return exitError
	}
	if err := writeState(statePath, mgr.State()); err != nil {
		fmt.Fprintf(out, "Error saving game state: %v\n", err)
		return exitError
	}

	fmt.Fprintln(out, "Turn completed successfully")
	fmt.Fprintf(out, "Action: %s\n", req.Action)
	fmt.Fprintf(out, "Next tribe: %s\n", mgr.State().CurrentTribe)
	log.Debug().Str("tribe", string(tribe)).Str("action", string(req.Action)).Int("changes", len(diff.Changes)).Msg("Turn applied")
	return exitOK
}

func validateOnly(out io.Writer, statePath, tribeName, strategyName string, cfg *config.Config) int {
	gs, tribe, req, code := decision(out, statePath, tribeName, strategyName, cfg)
	if code != exitOK {
		return code
	}
	if ok, reason := tribes.Check(gs, tribe, req); !ok {
		fmt.Fprintf(out, "Invalid move: %s\n", reason)
		return exitInvalid
	}
	fmt.Fprintf(out, "Move is valid: %s\n", req.Action)
	pretty, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "Error encoding action: %v\n", err)
		return exitError
	}
	fmt.Fprintln(out, string(pretty))
	return exitOK
}

func createGame(out io.Writer, outputPath, gameID string, cfg *config.Config) int {
	gs, err := tribes.NewGame(gameID, tribes.NewGameOptions{Width: cfg.MapWidth, Height: cfg.MapHeight, Seed: cfg.MapSeed})
	if err != nil {
		fmt.Fprintf(out, "Error creating game: %v\n", err)
		return exitError
	}
	if err := writeState(outputPath, gs); err != nil {
		fmt.Fprintf(out, "Error creating game: %v\n", err)
		return exitError
	}
	fmt.Fprintf(out, "Created new game: %s\n", gameID)
	fmt.Fprintf(out, "Saved to: %s\n", outputPath)
	return exitOK
}

func writeState(path string, gs *tribes.GameState) error {
	doc, err := tribes.Save(gs)
	if err != nil {
		return err
	}
	return replaceFile(path, doc)
}

func writeIndented(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return replaceFile(path, append(data, '\n'))
}

// replaceFile writes data to a temp file beside path and renames it into
// place, so readers see either the old or the new contents.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
