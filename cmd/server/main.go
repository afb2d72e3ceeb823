// Package main runs the localwp-mcp server: an MCP server that lets agents
// (e.g. Cursor, Claude Desktop) query the MySQL database of a running Local
// WordPress site without exposing credentials.
package main

import (
	"os"

	"github.com/SedlarDavid/localwp-mcp/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
