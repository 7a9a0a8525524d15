package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func textHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestFanoutDeliversToAll(t *testing.T) {
	var a, b bytes.Buffer
	f := Fanout{textHandler(&a, slog.LevelInfo), textHandler(&b, slog.LevelInfo)}

	logger := slog.New(f)
	logger.Info("mood changed", "to", "happy")

	for i, buf := range []*bytes.Buffer{&a, &b} {
		out := buf.String()
		if !strings.Contains(out, "mood changed") || !strings.Contains(out, "to=happy") {
			t.Errorf("handler %d output = %q", i, out)
		}
	}
}

func TestFanoutRespectsEachLevel(t *testing.T) {
	var quiet, chatty bytes.Buffer
	f := Fanout{textHandler(&quiet, slog.LevelWarn), textHandler(&chatty, slog.LevelDebug)}

	logger := slog.New(f)
	logger.Debug("probe")

	if quiet.Len() != 0 {
		t.Errorf("warn-level handler saw a debug record: %q", quiet.String())
	}
	if !strings.Contains(chatty.String(), "probe") {
		t.Errorf("debug-level handler missed the record: %q", chatty.String())
	}
}

func TestFanoutEnabled(t *testing.T) {
	var buf bytes.Buffer
	f := Fanout{textHandler(&buf, slog.LevelWarn)}

	ctx := context.Background()
	if f.Enabled(ctx, slog.LevelDebug) {
		t.Error("Enabled(debug) = true with only a warn handler")
	}
	if !f.Enabled(ctx, slog.LevelError) {
		t.Error("Enabled(error) = false with a warn handler")
	}
}

func TestFanoutWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	f := Fanout{textHandler(&buf, slog.LevelInfo)}.WithAttrs([]slog.Attr{slog.String("source", "mock")})

	slog.New(f).Info("started")

	if !strings.Contains(buf.String(), "source=mock") {
		t.Errorf("attrs not propagated: %q", buf.String())
	}
}

func TestLevelParsing(t *testing.T) {
	// Init runs once per process; the package-level helpers must work
	// regardless of which test touched the logger first.
	Init("debug")
	if L() == nil {
		t.Fatal("L() returned nil after Init")
	}
	Debug("debug line")
	Info("info line")
	Warn("warn line")
	Error("error line")
	if With("k", "v") == nil {
		t.Error("With returned nil")
	}
}
