package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("expected 8-char ids, got %q %q", a, b)
	}
	if a == b {
		t.Error("request ids should differ")
	}
}

func TestForRequestAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	ctx := WithGameID(WithRequestID(context.Background(), "abc12345"), "g-1")
	l := ForRequest(ctx)
	l.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"requestId":"abc12345"`) || !strings.Contains(out, `"gameId":"g-1"`) {
		t.Errorf("missing ids in %s", out)
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no request id")
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	prev := log.Logger
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}()

	var buf bytes.Buffer
	Init(Options{Level: "chatty", Out: &buf})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", zerolog.GlobalLevel())
	}
	if !strings.Contains(buf.String(), "Logger initialized") {
		t.Errorf("expected init line, got %q", buf.String())
	}
}

func TestLogBodyTruncates(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	LogBody(l, "request_body", bytes.Repeat([]byte("x"), 2000))
	if !strings.Contains(buf.String(), `"truncated":true`) {
		t.Errorf("expected truncation marker, got %s", buf.String())
	}
}
