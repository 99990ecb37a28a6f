// Package cli holds the start-up steps shared by cmd/flowerbot and
// cmd/flowerbot-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"flowerbot/internal/config"
	applog "flowerbot/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and installs it as
// the slog default. An unknown level falls back to info; Validate reports it.
func SetupLogger(level, component string) *applog.Logger {
	lvl, _ := applog.ParseLevel(level)
	logger := applog.New(applog.Config{Level: lvl, Component: component})
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the environment, sets up logging and validates
// the configuration with validate.
func Bootstrap(component string, validate func(*config.Config) error) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, component)
	if err := validate(cfg); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Exit logs err and terminates the process with status 1.
func Exit(logger *applog.Logger, msg string, err error) {
	logger.Error(msg, applog.FieldError, err)
	os.Exit(1)
}
