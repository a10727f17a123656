package cli

import "github.com/spf13/cobra"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the flowsync build version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("flowsync version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
