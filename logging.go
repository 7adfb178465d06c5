package authcore

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	Level       string // "debug", "info" (default), "warn", "error"
	Environment string // "production" writes JSON, anything else is console output
	ServiceName string
	Output      io.Writer
}

// NewLogger builds the logger handed to Builder.WithLogger. It never touches
// zerolog's global settings.
func NewLogger(cfg LogConfig) zerolog.Logger {
	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "authcore"
	}

	if cfg.Environment != "production" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}
