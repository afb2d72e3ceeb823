// Package cli wires configuration, site selection, the database handle and
// the MCP server into the localwp-mcp command.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SedlarDavid/localwp-mcp/internal/config"
	"github.com/SedlarDavid/localwp-mcp/internal/logging"
	"github.com/SedlarDavid/localwp-mcp/internal/site"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "localwp-mcp",
	Short: "MCP server for the MySQL database of a Local WordPress site",
	Long: `localwp-mcp finds one running Local (Local by Flywheel) site and serves
MCP tools over stdio that query its MySQL database.

Site selection, first match wins:
  1. SITE_ID       explicit site id from Local's sites.json
  2. SITE_NAME     explicit site name (case-insensitive)
  3. working directory inside a registered site
  4. running mysqld process with a Local config file
  5. most recently started site in Local's run directory

Statements are read-only unless LOCALWP_ALLOW_WRITES is set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// loadSettings reads .env, the config file and the environment, and builds
// the logger.
func loadSettings() (*config.Config, *zap.SugaredLogger, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logging.New(cfg.Debug), nil
}

func locations(cfg *config.Config) site.Locations {
	return site.Locations{
		RunDirOverride:    cfg.RunDir,
		SitesJSONOverride: cfg.SitesJSON,
	}
}

func newSelector(cfg *config.Config, log *zap.SugaredLogger) *site.Selector {
	return site.NewSelector(site.Options{
		SiteID:      cfg.SiteID,
		SiteName:    cfg.SiteName,
		Locations:   locations(cfg),
		ScanTimeout: cfg.ScanTimeout,
	}, log)
}
