package logger

import (
	"io"
	"os"
	"time"

	"github.com/examportal/portal-backend/internal/config"
	"github.com/rs/zerolog"
)

// Setup builds the process logger for one binary (server, migrate,
// create-admin, seed-questions). Every line carries app, env and cmd so
// logs from the API and the CLIs can share one sink.
//   - LOG_LEVEL: trace, debug, info, warn, error, fatal, panic (default info)
//   - LOG_FORMAT: "json" for production, "pretty" for human-readable dev output
func Setup(cfg *config.Config, cmd string) zerolog.Logger {
	var writer io.Writer = os.Stdout
	if cfg.LogFormat == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	log := build(writer, cfg, cmd)
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil || cfg.LogLevel == "" {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
	}
	return log
}

func build(w io.Writer, cfg *config.Config, cmd string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(w).
		With().
		Timestamp().
		Str("app", cfg.AppName).
		Str("env", cfg.AppEnv).
		Str("cmd", cmd).
		Caller().
		Logger()
}
