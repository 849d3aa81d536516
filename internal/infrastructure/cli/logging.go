package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/felixgeelhaar/cardflow/internal/infrastructure/config"
)

// resolveLevel picks the log level from the flag, then the environment,
// then the config file.
func resolveLevel(flag, env, file string) (slog.Level, error) {
	for _, v := range []string{flag, env, file} {
		if v != "" {
			return config.ParseLevel(v)
		}
	}
	return slog.LevelInfo, nil
}

func newLogger(w io.Writer, level slog.Level, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setupLogger builds the process logger and installs it as the default.
func setupLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := resolveLevel(logLevel, os.Getenv(config.EnvLogLevel), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := newLogger(os.Stderr, level, logJSON)
	slog.SetDefault(logger)
	return logger, nil
}
