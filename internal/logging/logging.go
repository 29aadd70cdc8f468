// Package logging holds the process-wide structured logger used by the
// tensor and decomposition engines.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(NewText(os.Stderr, slog.LevelWarn))
}

// L returns the current logger.
func L() *slog.Logger {
	return current.Load()
}

// SetLogger replaces the current logger. A nil logger discards output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = Noop()
	}
	current.Store(l)
}

// NewText returns a logger writing human-readable text to w.
func NewText(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSON returns a logger writing JSON lines to w.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop returns a logger that discards everything.
func Noop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// New builds a logger from a format ("text" or "json") and a level name
// ("debug", "info", "warn", "error").
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "text":
		return NewText(w, lvl), nil
	case "json":
		return NewJSON(w, lvl), nil
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, errors.Wrapf(err, "parse log level %q", s)
	}
	return lvl, nil
}
