package bot

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/pkg/tribes"
)

// ExternalOption configures an ExternalStrategy.
type ExternalOption func(*ExternalStrategy)

// WithTimeout sets the deadline for a single decision. Zero keeps the default.
func WithTimeout(d time.Duration) ExternalOption {
	return func(e *ExternalStrategy) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithArgs appends fixed arguments to the program invocation.
func WithArgs(args ...string) ExternalOption {
	return func(e *ExternalStrategy) {
		e.args = append(e.args, args...)
	}
}

// ExternalStrategy delegates each decision to a program. The program receives
// the persisted state document on stdin and the tribe in the TRIBES_TRIBE
// environment variable, and must print one JSON action on stdout.
type ExternalStrategy struct {
	program string
	args    []string
	timeout time.Duration
}

// NewExternalStrategy returns a strategy backed by program.
func NewExternalStrategy(program string, opts ...ExternalOption) *ExternalStrategy {
	e := &ExternalStrategy{program: program, timeout: 10 * time.Second}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Name returns "external:<program base name>".
func (e *ExternalStrategy) Name() string { return "external:" + filepath.Base(e.program) }

// Decide runs the program once. Output that is not a single JSON action is a
// StructuralError.
func (e *ExternalStrategy) Decide(ctx context.Context, gs *tribes.GameState, tribe tribes.Tribe) (tribes.ActionRequest, error) {
	doc, err := tribes.Save(gs)
	if err != nil {
		return tribes.ActionRequest{}, fmt.Errorf("external strategy: encode state: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.program, e.args...)
	cmd.Stdin = bytes.NewReader(doc)
	cmd.Env = append(os.Environ(), "TRIBES_TRIBE="+string(tribe))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return tribes.ActionRequest{}, fmt.Errorf("external strategy %s: no action within %s", e.Name(), e.timeout)
	}
	if err != nil {
		return tribes.ActionRequest{}, fmt.Errorf("external strategy %s: %w: %s", e.Name(), err, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 {
		log.Debug().Str("strategy", e.Name()).Str("stderr", stderr.String()).Msg("External strategy stderr")
	}

	line := lastLine(stdout.Bytes())
	req, err := tribes.DecodeAction(line)
	if err != nil {
		return tribes.ActionRequest{}, err
	}
	log.Debug().Str("strategy", e.Name()).Str("tribe", string(tribe)).
		Str("action", string(req.Action)).Dur("elapsed", time.Since(start)).Msg("External decision")
	return req, nil
}

// lastLine returns the last non-empty line, so programs may print progress
// before their answer.
func lastLine(out []byte) []byte {
	var last []byte
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if l := bytes.TrimSpace(sc.Bytes()); len(l) > 0 {
			last = append(last[:0], l...)
		}
	}
	return last
}
