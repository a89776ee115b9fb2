package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"disputedesk-hq/guardrail/pkg/config"
)

// LogFormat selects the slog handler.
type LogFormat string

// Supported formats. Text is logfmt-style and used by the offline CLI
// commands; services log JSON.
const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config is the resolved logger setup. Writer defaults to os.Stderr.
type Config struct {
	Level     string
	Format    string
	AddSource bool
	RedactPII bool
	Writer    io.Writer
}

// FromConfig converts the file configuration into a logger Config.
func FromConfig(c config.LoggingConfig) Config {
	return Config{
		Level:     c.Level,
		Format:    c.Format,
		AddSource: c.AddSource,
		RedactPII: c.RedactPII,
	}
}

// New builds a logger from cfg. Level and format are case-insensitive;
// empty values mean info and JSON.
func New(cfg Config) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", cfg.Level)
		}
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var inner slog.Handler
	switch LogFormat(strings.ToLower(cfg.Format)) {
	case FormatJSON, "":
		inner = slog.NewJSONHandler(w, opts)
	case FormatText:
		inner = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q: want json or text", cfg.Format)
	}
	return slog.New(NewContextHandler(inner, cfg.RedactPII)), nil
}

// Setup builds a logger with New and makes it the slog default.
func Setup(cfg Config) (*slog.Logger, error) {
	logger, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
