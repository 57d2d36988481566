// Package logging configures the process-wide zerolog logger, the way the
// teacher's internal/logging package does: a console writer for local
// development, structured JSON in production, both behind one Init call.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the logger's format, level, and an optional component
// field stamped onto every event emitted after Init runs.
type Config struct {
	Format    string // "json" or "console"; empty means "console"
	Level     string // zerolog level name; empty means "info"
	Component string
}

// Init configures the global zerolog logger per cfg. It is not safe to call
// concurrently with logging, the same restriction the teacher's own Init
// carries.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writer = os.Stderr
	logger := zerolog.New(writer).With().Timestamp()
	if !strings.EqualFold(cfg.Format, "json") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}).With().Timestamp()
	}
	if cfg.Component != "" {
		logger = logger.Str("component", cfg.Component)
	}
	log.Logger = logger.Logger()
}
