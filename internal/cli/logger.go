package cli

import (
	"log/slog"

	"github.com/aretw0/firstaid/internal/config"
	"github.com/aretw0/firstaid/internal/logging"
)

// NewLogger creates the process logger. debug forces the debug level.
func NewLogger(cfg *config.Config, debug bool) *slog.Logger {
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger := logging.NewFromConfig(cfg.LogFormat, level)
	slog.SetDefault(logger)
	return logger
}
