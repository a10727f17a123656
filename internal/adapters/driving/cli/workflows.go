package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/flowsync/internal/core/domain"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List stored workflows and the task types that run them",
	Args:  cobra.NoArgs,
	RunE:  runWorkflows,
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
}

func runWorkflows(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, app *App) error {
		workflows, err := app.Workflows.List(ctx)
		if err != nil {
			return err
		}

		types := make(map[string][]domain.Provider)
		for _, info := range app.Registry.Describe() {
			types[info.TypeKey] = info.RequiredProviders
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tREQUIRES")
		for _, wf := range workflows {
			key := wf.TypeKey()
			requires := "(no task registered)"
			if providers, ok := types[key]; ok {
				requires = joinProviders(providers)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", wf.ID, wf.Name, key, requires)
		}
		return w.Flush()
	})
}

func joinProviders(providers []domain.Provider) string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}
