package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey struct{}

// Setup installs the process-wide default logger writing to stderr, so that
// stdout stays free for command output.
func Setup(level string, format string) {
	SetupWriter(os.Stderr, level, format)
}

func SetupWriter(w io.Writer, level string, format string) {
	slog.SetDefault(slog.New(NewHandler(w, level, format)))
}

func NewHandler(w io.Writer, level string, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

func WithExperiment(ctx context.Context, experimentID string) context.Context {
	return context.WithValue(ctx, contextKey{}, experimentID)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if experimentID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("experiment_id", experimentID)
	}
	return logger
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
