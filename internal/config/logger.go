package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SetupLogger builds the process logger from the Advanced section and
// installs it as the slog default.
func SetupLogger(cfg *AppConfig, w io.Writer) *slog.Logger {
	level, err := parseLevel(cfg.Advanced.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Advanced.LogFormat, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("Advanced.LogLevel %q is not debug, info, warn or error", s)
	}
}
