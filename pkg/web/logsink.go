package web

import (
	"context"
	"log/slog"
	"strings"
)

// SlogHandler returns a handler that mirrors records at info and above
// into the dashboard log stream. Wire it with log.Tee at startup.
func (s *Server) SlogHandler() slog.Handler {
	return &ringHandler{server: s, level: slog.LevelInfo}
}

// ringHandler renders slog records into flat dashboard log lines.
type ringHandler struct {
	server *Server
	level  slog.Level
	attrs  []slog.Attr
}

func (h *ringHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ringHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})

	h.server.AddLog(levelName(r.Level), b.String())
	return nil
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &out
}

// WithGroup flattens groups; dashboard lines stay one level deep.
func (h *ringHandler) WithGroup(string) slog.Handler {
	return h
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	b.WriteByte(' ')
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
