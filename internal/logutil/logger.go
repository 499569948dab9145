package logutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/fluxbase-eu/queryfilter/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger
func Setup(cfg config.LoggingConfig) {
	SetupWriter(cfg, os.Stderr)
}

// SetupWriter configures the global zerolog logger to write to w
func SetupWriter(cfg config.LoggingConfig, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	if cfg.Format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
}

// ParseLevel maps a configured level name to a zerolog level, falling back
// to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
