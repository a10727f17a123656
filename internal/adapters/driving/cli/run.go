package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var runAsync bool

var runCmd = &cobra.Command{
	Use:   "run <workflow> <user-id>",
	Short: "Run a workflow for one user",
	Long: `Runs a workflow for a single user and prints the outcome. The workflow
is matched by name ("Notion to Google") or type key (notion_to_google).
With --async the run is queued for a worker instead; this needs Redis so
the job outlives this process.`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll cycle for every eligible user",
	Args:  cobra.NoArgs,
	RunE:  runPoll,
}

func init() {
	runCmd.Flags().BoolVar(&runAsync, "async", false, "queue the run for a worker instead of running it here")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pollCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	workflowType, userID := args[0], args[1]

	return withApp(cmd, true, func(ctx context.Context, app *App) error {
		if runAsync {
			if app.Config.Redis.URL == "" {
				return errors.New("--async needs redis.url (REDIS_URL) so a worker can pick the job up")
			}
			if err := app.Dispatcher.Submit(ctx, workflowType, userID); err != nil {
				return err
			}
			cmd.Printf("Queued %s for %s.\n", workflowType, userID)
			return nil
		}

		result, err := app.Runner.RunOne(ctx, workflowType, userID)
		if err != nil {
			return err
		}
		if !result.Success {
			cmd.Printf("%s failed for %s: %s\n", workflowType, userID, result.Error)
			return fmt.Errorf("run failed: %s", result.Error)
		}
		cmd.Printf("%s finished for %s: processed %d, created %d.\n",
			workflowType, userID, result.ItemsProcessed, result.ItemsCreated)
		return nil
	})
}

func runPoll(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, true, func(ctx context.Context, app *App) error {
		summary, err := app.Runner.RunAllEligible(ctx)
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}
		cmd.Printf("Poll complete: %d eligible, %d run, %d failed, %d processed, %d created.\n",
			summary.UsersConsidered, summary.UsersRun, summary.UsersFailed,
			summary.ItemsProcessed, summary.ItemsCreated)
		return nil
	})
}
