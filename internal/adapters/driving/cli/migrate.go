package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Opens the configured database and applies any pending migrations.
Migrations also run whenever another command opens the database.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(_ context.Context, app *App) error {
		v, ok, err := app.SchemaVersion()
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("In-memory storage has no schema to migrate.")
			return nil
		}
		cmd.Printf("Database schema at version %d.\n", v)
		return nil
	})
}
