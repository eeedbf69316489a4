package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/ligastats/ligastats/internal/pkg/config"
)

// Setup installs the global slog logger with the level from config.
func Setup(cfg *config.LoggingConfig, serviceName string) *slog.Logger {
	level := parseLevel(cfg.Level)

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
