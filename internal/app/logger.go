package app

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lvoegtlin/open-gms-sub000/internal/config"
)

// newLogger builds the app's own logger from the log settings; the global
// logger is left alone. At debug level and below every record also carries
// its source position.
func newLogger(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case config.FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	case config.FormatText:
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("log format %q: want %q or %q", cfg.Format, config.FormatText, config.FormatJSON)
	}
	return slog.New(h), nil
}
