package app

import (
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/agentstation/mastermap/pkg/logging"
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// NewLogger creates the CLI logger. Level precedence, highest first:
// --log-level or LOG_LEVEL, then -v (debug), then -q (warn), then info.
func NewLogger(cfg *Config) zerolog.Logger {
	level := determineLogLevel(cfg)
	return logging.NewLoggerFromConfig(&logging.Config{
		Level:      level,
		Format:     cfg.LogFormat,
		Output:     cfg.LogOutput,
		TimeFormat: "kitchen",
		NoColor:    cfg.NoColor || os.Getenv("NO_COLOR") != "",
		AddCaller:  level == "debug" || level == "trace",
	})
}

func determineLogLevel(cfg *Config) string {
	if cfg.LogLevel != "" {
		if slices.Contains(validLogLevels, cfg.LogLevel) {
			return cfg.LogLevel
		}
		fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using \"info\"\n", cfg.LogLevel)
		return "info"
	}
	if cfg.Verbose && cfg.Quiet {
		fmt.Fprintf(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	}
	if cfg.Verbose {
		return "debug"
	}
	if cfg.Quiet {
		return "warn"
	}
	return "info"
}
