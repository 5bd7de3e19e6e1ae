package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freeeve/tribes/pkg/tribes"
)

func newGameFile(t *testing.T) string {
	t.Helper()
	t.Setenv("MAP_SEED", "5")
	path := filepath.Join(t.TempDir(), "data", "gamestate.json")
	var out bytes.Buffer
	if code := run([]string{"new", "--output", path, "--id", "game_test"}, &out); code != exitOK {
		t.Fatalf("new: exit %d: %s", code, out.String())
	}
	return path
}

func loadFile(t *testing.T, path string) *tribes.GameState {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	gs, err := tribes.Load(data)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	return gs
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\ncat >/dev/null\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNewGame(t *testing.T) {
	path := newGameFile(t)
	gs := loadFile(t, path)
	if gs.GameID != "game_test" || gs.CurrentTribe != tribes.Red || gs.Turn != 1 {
		t.Errorf("unexpected new game: id=%s tribe=%s turn=%d", gs.GameID, gs.CurrentTribe, gs.Turn)
	}
}

func TestRunTurn(t *testing.T) {
	path := newGameFile(t)
	diffPath := filepath.Join(t.TempDir(), "diff.json")

	var out bytes.Buffer
	code := run([]string{"run", "--state", path, "--tribe", "red", "--output", diffPath}, &out)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "Turn completed successfully") || !strings.Contains(out.String(), "Next tribe: BLUE") {
		t.Errorf("unexpected output %q", out.String())
	}

	gs := loadFile(t, path)
	if gs.CurrentTribe != tribes.Blue || len(gs.History) != 1 {
		t.Errorf("state not advanced: tribe=%s history=%d", gs.CurrentTribe, len(gs.History))
	}

	data, err := os.ReadFile(diffPath)
	if err != nil {
		t.Fatalf("read diff: %v", err)
	}
	var diff tribes.Diff
	if err := diff.UnmarshalJSON(data); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if len(diff.Changes) == 0 {
		t.Error("expected changes in diff")
	}
}

func TestRunTurnRejections(t *testing.T) {
	path := newGameFile(t)
	before, _ := os.ReadFile(path)

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"wrong tribe", []string{"--tribe", "BLUE"}, exitInvalid, "Not BLUE's turn"},
		{"unknown tribe", []string{"--tribe", "PURPLE"}, exitError, "Error"},
		{"illegal action", []string{"--tribe", "RED", "--strategy", "external:" + writeScript(t, `echo '{"action":"BUILD","building":"TOWER","position":[10,10]}'`)}, exitInvalid, "Invalid move:"},
		{"missing field", []string{"--tribe", "RED", "--strategy", "external:" + writeScript(t, `echo '{"action":"MOVE","target":[1,1]}'`)}, exitInvalid, "Invalid move:"},
		{"garbage output", []string{"--tribe", "RED", "--strategy", "external:" + writeScript(t, `echo hello`)}, exitError, "Error executing strategy"},
		{"unknown strategy", []string{"--tribe", "RED", "--strategy", "telepathy"}, exitError, "Error loading strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			args := append([]string{"run", "--state", path, "--output", filepath.Join(t.TempDir(), "d.json")}, tt.args...)
			if code := run(args, &out); code != tt.code {
				t.Fatalf("expected exit %d, got %d: %s", tt.code, code, out.String())
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, out.String())
			}
		})
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("rejected runs must not modify the state file")
	}
}

func TestRunDiffWriteFailureKeepsState(t *testing.T) {
	path := newGameFile(t)
	before, _ := os.ReadFile(path)
	// A directory in place of the diff file makes the rename fail.
	diffPath := t.TempDir()

	var out bytes.Buffer
	code := run([]string{"run", "--state", path, "--tribe", "RED", "--output", diffPath}, &out)
	if code != exitError {
		t.Fatalf("expected exit %d, got %d: %s", exitError, code, out.String())
	}
	if !strings.Contains(out.String(), "Error writing diff") {
		t.Errorf("unexpected output %q", out.String())
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("state advanced without a diff on disk")
	}
	if entries, _ := os.ReadDir(filepath.Dir(path)); len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestRunMissingState(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"run", "--state", filepath.Join(t.TempDir(), "nope.json"), "--tribe", "RED"}, &out)
	if code != exitError {
		t.Errorf("expected exit 2, got %d", code)
	}
}

func TestValidateOnly(t *testing.T) {
	path := newGameFile(t)
	before, _ := os.ReadFile(path)

	var out bytes.Buffer
	if code := run([]string{"validate", "--state", path, "--tribe", "RED"}, &out); code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "Move is valid:") {
		t.Errorf("unexpected output %q", out.String())
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("validate must not modify the state file")
	}
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	if code := run(nil, &out); code != exitInvalid {
		t.Errorf("expected exit 1 without a verb, got %d", code)
	}
	if code := run([]string{"fly"}, &out); code != exitInvalid {
		t.Errorf("expected exit 1 for an unknown verb, got %d", code)
	}
	if code := run([]string{"run", "--tribe", "RED"}, &out); code != exitError {
		t.Errorf("expected exit 2 without --state, got %d", code)
	}
}
