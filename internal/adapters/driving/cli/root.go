// Package cli provides the flowsync command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/flowsync/internal/adapters/driven/config"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	cfgPath string
	verbose bool
)

// Swapped by tests.
var (
	loadConfig = func() (*config.Config, error) {
		return config.Load(cfgPath, cfgPath != config.DefaultPath)
	}
	openApp = NewApp
)

var rootCmd = &cobra.Command{
	Use:   "flowsync",
	Short: "Sync Notion meeting plans into Google Calendar",
	Long: `flowsync polls each user's Notion database for meetings marked for
scheduling, creates the matching Google Calendar events and marks the
records done. It keeps OAuth tokens fresh and records every step in an
execution log.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath, "path to the TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command. ctx is cancelled on shutdown signals.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// withApp loads configuration, wires the services and closes them when fn returns.
func withApp(cmd *cobra.Command, validate bool, fn func(ctx context.Context, app *App) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLogging(cfg)
	if validate {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := openApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("starting flowsync: %w", err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing: %w", cerr))
		}
	}()

	return fn(ctx, app)
}

func applyLogging(cfg *config.Config) {
	logger.SetFormat(logger.Format(cfg.Log.Format))
	if !verbose {
		logger.SetLevel(cfg.Log.Level)
	}
}
