package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/flowsync/internal/adapters/driving/api"
	"github.com/custodia-labs/flowsync/internal/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the scheduler, job dispatcher and HTTP server",
	Long: `Starts the background worker. The scheduler polls every eligible user
and refreshes expiring OAuth tokens; the dispatcher runs on-demand jobs;
the HTTP server exposes health checks, triggers, logs and metrics.
Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and job dispatcher without the scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(serveCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, true, func(ctx context.Context, app *App) error {
		return runComponents(ctx, app, true)
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, true, func(ctx context.Context, app *App) error {
		return runComponents(ctx, app, false)
	})
}

// runComponents runs the HTTP server, the dispatcher and optionally the
// scheduler until ctx is cancelled or one of them fails.
func runComponents(ctx context.Context, app *App, withScheduler bool) error {
	g, ctx := errgroup.WithContext(ctx)

	router := api.NewRouter(&api.RouterDeps{
		Runner:     app.Runner,
		Dispatcher: app.Dispatcher,
		Logs:       app.Logs,
		Workflows:  app.Registry,
		Pingers:    app.Pingers,
		Gatherer:   app.Gatherer,
	})
	server := api.NewServer(app.Config.HTTP.Addr, router, app.Config.HTTP.ShutdownTimeout.Std())

	g.Go(func() error { return ignoreCanceled(server.Serve(ctx)) })
	g.Go(func() error { return ignoreCanceled(app.Dispatcher.Run(ctx)) })
	if withScheduler {
		g.Go(func() error { return ignoreCanceled(app.Scheduler.Start(ctx)) })
	}

	logger.Info("flowsync started", "version", version, "scheduler", withScheduler, "addr", app.Config.HTTP.Addr)
	err := g.Wait()
	logger.Info("flowsync stopped")
	return err
}

// ignoreCanceled treats cancellation as a clean stop.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
