package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/SedlarDavid/localwp-mcp/internal/site"
)

var sitesJSON bool

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List Local sites and whether they are running",
	Long: `List every site in Local's sites.json with its domain, path and whether
its MySQL socket exists. Prints a table on a terminal and JSON otherwise.`,
	Args: cobra.NoArgs,
	RunE: runSites,
}

func init() {
	sitesCmd.Flags().BoolVar(&sitesJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(sitesCmd)
}

func runSites(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc := locations(cfg)
	reg, err := (&site.RegistryLoader{Locations: loc}).Load()
	if err != nil {
		return err
	}
	statuses := site.ListStatuses(reg, loc)

	out := cmd.OutOrStdout()
	if sitesJSON || !isTerminal(out) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDOMAIN\tSTATUS\tPATH")
	for _, s := range statuses {
		state := "stopped"
		if s.Running {
			state = "running"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Domain, state, s.Path)
	}
	return tw.Flush()
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
