// Package logging provides the structured logger shared by the index and
// the command line tool.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with phylotree-specific helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that writes human-readable text logs to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop creates a Logger that discards all log output.
func Noop() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// New builds a Logger from the textual level and format used in flags and
// config files ("debug", "info", "warn", "error"; "text" or "json").
func New(w io.Writer, level, format string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextLogger(w, lvl), nil
	case "json":
		return NewJSONLogger(w, lvl), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// WithSource adds the genome source to the logger.
func (l *Logger) WithSource(source string) *Logger {
	return &Logger{
		Logger: l.Logger.With("source", source),
	}
}

// LogInsert logs the outcome of one insertion.
func (l *Logger) LogInsert(ctx context.Context, source, placement string, distance int, path []uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"source", source,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "insert completed",
		"source", source,
		"placement", placement,
		"distance", distance,
		"path", path,
	)
}

// LogNarrow logs one step of the narrowing search.
func (l *Logger) LogNarrow(ctx context.Context, node uint32, count, candidates int) {
	l.DebugContext(ctx, "narrowing",
		"node", node,
		"count", count,
		"candidates", candidates,
	)
}

// LogBuild logs the summary of a build run.
func (l *Logger) LogBuild(ctx context.Context, folder string, inserted, failed, total int) {
	if failed > 0 {
		l.WarnContext(ctx, "build completed with failures",
			"folder", folder,
			"inserted", inserted,
			"failed", failed,
			"total", total,
		)
		return
	}
	l.InfoContext(ctx, "build completed",
		"folder", folder,
		"inserted", inserted,
		"total", total,
	)
}
