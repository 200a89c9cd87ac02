package log

import (
	"log/slog"
	"os"
)

// New constructs the engine's JSON logger at info level
func New(service, env, version string) *slog.Logger {
	return NewWithLevel(service, env, version, slog.LevelInfo)
}

// NewWithLevel constructs the engine's JSON logger at the provided
// level. Log output goes to stderr so response payloads on stdout stay
// machine-readable. The env attr is omitted when no environment is set
func NewWithLevel(service, env, version string, lvl slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
		slog.String("version", version))
	if env != "" {
		logger = logger.With(slog.String("env", env))
	}
	return logger
}
