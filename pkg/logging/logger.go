// Package logging provides structured logging for mastermap using zerolog.
// Terminals get human-readable console output; everything else (CI, workflow
// runners, containers) gets one JSON object per line.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("dataset", "单位基本情况_611").Msg("Building authority table")
//
//	ctx := logging.WithLogger(context.Background(), log)
//	ctx = logging.WithIteration(ctx, 2)
//	logging.FromContext(ctx).Warn().Int("row", 17).Msg("Name mismatch, fix rejected")
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger is used when no logger travels in the context. It reads
// LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT so library callers get the same
// switches as the CLI; DEBUG=1 is a shortcut for debug level.
var defaultLogger = NewLoggerFromConfig(envConfig())

func envConfig() *Config {
	cfg := DefaultConfig()
	cfg.Level = os.Getenv("LOG_LEVEL")
	if cfg.Level == "" && os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		cfg.Format = f
	}
	if o := os.Getenv("LOG_OUTPUT"); o != "" {
		cfg.Output = o
	}
	return cfg
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a new logger with the given writer.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// stderrIsTerminal checks if stderr is a terminal.
func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
