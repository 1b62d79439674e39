// Package cli holds the quantviz subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"quantviz/config"
	"quantviz/internal/app"
	"quantviz/logger"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

var configPath = flag.String("config", config.DefaultPath, "Path to the YAML configuration file")

// Register adds every command to c.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&fetchCmd{}, "ingest")
	c.Register(&scheduleCmd{}, "ingest")
	c.Register(&serviceCmd{}, "ingest")
	c.Register(&streamCmd{}, "ingest")

	c.Register(&chartCmd{}, "presentation")
	c.Register(&reportCmd{}, "presentation")
	c.Register(&exportCmd{}, "presentation")

	c.Register(&migrateCmd{}, "storage")
}

// setup loads the config and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// withApp runs fn with the ingest graph and maps its error to an exit status.
func withApp(ctx context.Context, fn func(a *app.App) error) subcommands.ExitStatus {
	cfg, log, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync()

	a, cleanup, err := app.InitializeApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer cleanup()

	if err := fn(a); err != nil {
		log.Error("command failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// withReader is withApp for the read-only commands.
func withReader(ctx context.Context, fn func(r *app.Reader) error) subcommands.ExitStatus {
	cfg, log, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer log.Sync()

	r, cleanup, err := app.InitializeReader(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer cleanup()

	if err := fn(r); err != nil {
		log.Error("command failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
