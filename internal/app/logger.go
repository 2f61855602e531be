package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production deployments set
// LOG_FORMAT=json; everything else gets the text handler.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	if cfg != nil && cfg.IsProduction() {
		logger.Warn("production environment without json logging", slog.String("log_format", cfg.LogFormat))
	}
	return logger
}
