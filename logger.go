package coreset

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with coreset-specific context.
// This provides structured logging with consistent field names.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRank adds a rank field to the logger.
func (l *Logger) WithRank(rank int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank),
	}
}

// WithRestart adds a restart field to the logger.
func (l *Logger) WithRestart(restart int) *Logger {
	return &Logger{
		Logger: l.Logger.With("restart", restart),
	}
}

// WithK adds a k (cluster count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogFit logs a fit operation.
func (l *Logger) LogFit(ctx context.Context, points, k, workers int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fit failed",
			"points", points,
			"k", k,
			"workers", workers,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "fit completed",
			"points", points,
			"k", k,
			"workers", workers,
			"duration", duration,
		)
	}
}

// LogRestart logs the completion of a restart.
func (l *Logger) LogRestart(ctx context.Context, restart, iterations int, sse float64, converged bool) {
	l.DebugContext(ctx, "restart completed",
		"restart", restart,
		"iterations", iterations,
		"error", sse,
		"converged", converged,
	)
}

// LogCoreset logs a coreset construction.
func (l *Logger) LogCoreset(ctx context.Context, points, size int, totalWeight float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "coreset construction failed",
			"points", points,
			"size", size,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "coreset built",
			"points", points,
			"size", size,
			"total_weight", totalWeight,
		)
	}
}
