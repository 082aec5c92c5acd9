package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/lrx/internal/lyrics"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := "config.toml"
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		}
	}

	provider := lyrics.NewClient(lyrics.ClientOpts{
		Endpoint:          config.Lyrics.Endpoint,
		UserAgent:         config.Lyrics.UserAgent,
		Timeout:           time.Duration(config.Lyrics.TimeoutSeconds) * time.Second,
		RequestsPerSecond: config.Lyrics.RequestsPerSecond,
		Logger:            logger,
	})

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Provider:   provider,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "lrx",
		Usage:    "Fetch and reconcile lyrics for a local music library",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	// An interrupt stops admitting new lookups; in-flight work drains before
	// the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
