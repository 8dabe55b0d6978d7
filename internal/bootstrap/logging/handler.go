package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New builds a logger writing to w. format is text, json or pretty; pretty
// renders through charmbracelet/log for interactive terminals.
func New(w io.Writer, level string, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case "pretty":
		charmLevel, err := charmlog.ParseLevel(lvl.String())
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		handler := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel,
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Formatter:       charmlog.TextFormatter,
		})
		return slog.New(handler), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

func parseLevel(raw string) (slog.Level, error) {
	var lvl slog.Level
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(trimmed)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level %q: %w", raw, err)
	}
	return lvl, nil
}
