// Package main runs a one-off MCP client: builds and spawns the localwp-mcp
// server, calls one tool with optional JSON arguments, and prints the result.
// The server runs in the caller's working directory, so running the client
// from inside a Local site folder selects that site by cwd match.
//
//	go run ./cmd/mcpclient <tool_name>              # no args, e.g. ping
//	go run ./cmd/mcpclient <tool_name> '<json>'    # with arguments
//
// To use it from a site folder, build it once (go build -o mcpclient
// ./cmd/mcpclient) and run the binary there.
//
// Examples:
//
//	go run ./cmd/mcpclient site_info
//	go run ./cmd/mcpclient list_tables
//	go run ./cmd/mcpclient mysql_query '{"sql":"SELECT option_value FROM wp_options WHERE option_name = ?","params":["siteurl"]}'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <tool_name> [json_arguments]\n", os.Args[0])
		os.Exit(1)
	}
	toolName := os.Args[1]
	args := map[string]any{}
	if len(os.Args) >= 3 && os.Args[2] != "" {
		if err := json.Unmarshal([]byte(os.Args[2]), &args); err != nil {
			fmt.Fprintf(os.Stderr, "invalid json arguments: %v\n", err)
			os.Exit(1)
		}
	}
	if err := run(toolName, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(toolName string, args map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	repoRoot, err := findRepoRoot(cwd)
	if err != nil {
		repoRoot, err = findRepoRoot(sourceDir())
	}
	if err != nil {
		return fmt.Errorf("find repo root: %w", err)
	}

	binDir, err := os.MkdirTemp("", "localwp-mcp-client-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(binDir)
	bin := filepath.Join(binDir, "localwp-mcp")
	if out, err := buildServerCmd(ctx, repoRoot, bin).CombinedOutput(); err != nil {
		return fmt.Errorf("build server: %w\n%s", err, out)
	}

	// The child inherits this process's cwd and environment, so cwd matching
	// and SITE_ID, MYSQL_* etc. behave as if the server were started here.
	c, err := client.NewStdioMCPClient(bin, os.Environ())
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer c.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "mcpclient", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	res, err := c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: toolName, Arguments: args},
	})
	if err != nil {
		return fmt.Errorf("call tool: %w", err)
	}
	text := ""
	if len(res.Content) > 0 {
		if tc, ok := mcp.AsTextContent(res.Content[0]); ok {
			text = tc.Text
		}
	}
	if res.IsError {
		return fmt.Errorf("tool error: %s", text)
	}
	fmt.Println(text)
	return nil
}

// buildServerCmd compiles ./cmd/server inside repoRoot without changing
// this process's working directory.
func buildServerCmd(ctx context.Context, repoRoot, out string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "go", "build", "-o", out, "./cmd/server")
	cmd.Dir = repoRoot
	return cmd
}

// sourceDir is the directory this file was compiled from.
func sourceDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Dir(file)
}

func findRepoRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
