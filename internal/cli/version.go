package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SedlarDavid/localwp-mcp/internal/server"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", server.ServerName, Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
