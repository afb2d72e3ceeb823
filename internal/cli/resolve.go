package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which Local site would be used and why",
	Long: `Run site selection once and print the result without starting the
server. On failure the error lists every strategy that was tried.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	sel, err := newSelector(cfg, log).Resolve(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if resolveJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sel)
	}
	fmt.Fprintf(out, "Site:    %s (%s)\n", sel.SiteName, sel.Info.SiteID)
	fmt.Fprintf(out, "Method:  %s\n", sel.Method)
	fmt.Fprintf(out, "Path:    %s\n", sel.SitePath)
	fmt.Fprintf(out, "Domain:  %s\n", sel.Domain)
	fmt.Fprintf(out, "Socket:  %s\n", sel.Info.SocketPath)
	fmt.Fprintf(out, "Port:    %s\n", sel.Info.Port)
	return nil
}
