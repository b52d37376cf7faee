package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. Deployed environments use the
// JSON handler so ledger log lines stay machine-indexable; the text handler
// is for local work.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "granary"))
}
