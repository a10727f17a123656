package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

var (
	logsLimit     int
	logsAnalytics bool
	logsJSON      bool
)

var logsCmd = &cobra.Command{
	Use:   "logs <user-id>",
	Short: "Show a user's execution log",
	Long: `Prints a user's most recent execution log rows, newest first.
With --analytics, prints totals, the success rate and per-workflow
execution counts instead. Use user id "system" for poll cycle summaries.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "number of rows to show (default 50)")
	logsCmd.Flags().BoolVar(&logsAnalytics, "analytics", false, "show aggregated statistics")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "print JSON")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	userID := args[0]

	return withApp(cmd, false, func(ctx context.Context, app *App) error {
		if logsAnalytics {
			a, err := app.Logs.Analytics(ctx, userID)
			if err != nil {
				return err
			}
			if logsJSON {
				return printJSON(cmd, a)
			}
			printAnalytics(cmd, a)
			return nil
		}

		rows, err := app.Logs.Recent(ctx, userID, logsLimit)
		if err != nil {
			return err
		}
		if logsJSON {
			return printJSON(cmd, rows)
		}
		if len(rows) == 0 {
			cmd.Printf("No execution logs for %s.\n", userID)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSTEP\tAPP\tOK\tDESCRIPTION")
		for _, row := range rows {
			desc := row.Description
			if row.Error != "" {
				desc += " (" + row.Error + ")"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				row.CreatedAt.Local().Format(time.DateTime), row.StepType, row.App, yesNo(row.Success), desc)
		}
		return w.Flush()
	})
}

func printAnalytics(cmd *cobra.Command, a *domain.Analytics) {
	cmd.Printf("Total actions:      %d\n", a.TotalActions)
	cmd.Printf("Successful actions: %d\n", a.SuccessfulActions)
	cmd.Printf("Success rate:       %.1f%%\n", a.SuccessRate)
	for _, wf := range a.Workflows {
		cmd.Printf("Workflow %d: %d executions, %d successful, %d failed, last %s\n",
			wf.WorkflowID, wf.Executions, wf.Successful, wf.Failed,
			wf.LastExecution.Local().Format(time.DateTime))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
