package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/SedlarDavid/localwp-mcp/internal/db"
	"github.com/SedlarDavid/localwp-mcp/internal/logging"
	"github.com/SedlarDavid/localwp-mcp/internal/server"
	"github.com/SedlarDavid/localwp-mcp/internal/site"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Resolve the site and serve MCP over stdio (default)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debugw("effective configuration", "config", cfg.Summary())
	sel, err := newSelector(cfg, log).Resolve(ctx)
	if err != nil {
		return err
	}
	log.Infow("using Local site",
		"site", sel.SiteName, "id", sel.Info.SiteID, "method", sel.Method,
		"socket", sel.Info.SocketPath)
	if cfg.AllowWrites {
		log.Warnw("write mode enabled: INSERT, UPDATE and DELETE are allowed")
	}

	conn := db.BuildConnectionConfig(sel.Info, db.Credentials{
		User:     cfg.User,
		Password: cfg.Password(),
		Database: cfg.Database,
	})
	handle := db.New(conn, log)
	defer handle.Close()

	srv := server.New(&server.Deps{
		Selection:   &sel,
		Database:    conn.Database,
		DB:          handle,
		AllowWrites: cfg.AllowWrites,
		Registry:    &site.RegistryLoader{Locations: locations(cfg)},
		Locations:   locations(cfg),
		Logger:      log,
	})
	stdio := mcpserver.NewStdioServer(srv)
	stdio.SetErrorLogger(logging.StdLog(log))

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
