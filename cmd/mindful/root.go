package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JamesPrial/mindful-journal/internal/app"
	"github.com/JamesPrial/mindful-journal/internal/config"
	"github.com/JamesPrial/mindful-journal/internal/logging"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	dataDir    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mindful",
		Short: "A local journal with goals and tasks lists",
		Long: `mindful keeps journal entries as plain text files and goals and tasks
as JSON lists (or SQLite/PostgreSQL tables) under one data folder, and
serves them to the browser front end and to MCP clients.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Data folder (overrides config and "+config.EnvDataDir+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newMergeCmd(opts),
		newInfoCmd(opts),
		newAddCmd(opts),
	)
	return cmd
}

// loadConfig applies the flags on top of the file and environment.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath, func(cfg *config.Config) {
		if o.dataDir != "" {
			cfg.DataDir = o.dataDir
		}
		if o.verbose {
			cfg.Logging.Level = "debug"
		}
	})
}

// open loads config, builds the logger and opens the stores. The returned
// cleanup closes the backend and flushes the logger.
func (o *rootOptions) open(ctx context.Context) (*app.App, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return a, cleanup, nil
}
