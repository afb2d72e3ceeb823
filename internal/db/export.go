package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// brewPrefixes maps CLI tool names to the Homebrew formula prefixes where
// versioned copies may be installed (e.g. mysql-client@8.0/bin/mysqldump).
var brewPrefixes = map[string][]string{
	"mysqldump": {"mysql-client@", "mysql@"},
}

// findCLITool returns the absolute path to the best available version of a CLI
// tool. On macOS it inspects Homebrew versioned formula directories so that the
// newest installed version is used regardless of PATH ordering. Falls back to
// exec.LookPath.
func findCLITool(name string) (string, error) {
	if runtime.GOOS == "darwin" {
		for _, prefix := range brewPrefixes[name] {
			if p := findNewestBrewBinary(prefix, name); p != "" {
				return p, nil
			}
		}
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s is not installed or not in PATH; install it to use export", name)
	}
	return p, nil
}

// findNewestBrewBinary scans /opt/homebrew/opt and /usr/local/opt for
// versioned formula directories matching the given prefix and returns the
// binary with the highest major version.
func findNewestBrewBinary(formulaPrefix, binary string) string {
	type candidate struct {
		version int
		path    string
	}
	var candidates []candidate

	for _, optDir := range []string{"/opt/homebrew/opt", "/usr/local/opt"} {
		entries, err := os.ReadDir(optDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !strings.HasPrefix(e.Name(), formulaPrefix) {
				continue
			}
			ver := 0
			fmt.Sscanf(strings.TrimPrefix(e.Name(), formulaPrefix), "%d", &ver)
			if ver == 0 {
				continue
			}
			binPath := filepath.Join(optDir, e.Name(), "bin", binary)
			if _, err := os.Stat(binPath); err == nil {
				candidates = append(candidates, candidate{version: ver, path: binPath})
			}
		}
	}

	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].version > candidates[j].version
	})
	return candidates[0].path
}

// validateExportPath validates and normalizes the output file path for export.
// It ensures the parent directory exists.
func validateExportPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	dir := filepath.Dir(abs)
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("parent directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("parent path is not a directory: %s", dir)
	}
	return abs, nil
}

// truncateMsg truncates a string to maxLen characters for safe error reporting.
func truncateMsg(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "... (truncated)"
	}
	return s
}

// runCLIWithEnv runs an external command with extra environment variables.
// It does NOT log the args or env (the env carries the password).
func runCLIWithEnv(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %s", filepath.Base(name), truncateMsg(string(out), 500))
	}
	return nil
}

// dumpArgs builds mysqldump arguments for a socket connection.
func (c ConnectionConfig) dumpArgs(resultFile string) []string {
	return []string{
		"--socket", c.SocketPath,
		"--user", c.User,
		"--result-file", resultFile,
		"--single-transaction",
		"--routines",
		"--triggers",
		c.Database,
	}
}

func (c ConnectionConfig) dumpEnv() []string {
	if c.Password != "" {
		return []string{"MYSQL_PWD=" + c.Password}
	}
	return nil
}

// ExportDatabase dumps the site database to path with mysqldump over the
// site socket and returns the absolute output path.
func (h *Handle) ExportDatabase(ctx context.Context, path string) (string, error) {
	if h.cfg.SocketPath == "" {
		return "", errors.New("export requires a MySQL socket connection")
	}
	mysqldump, err := findCLITool("mysqldump")
	if err != nil {
		return "", err
	}
	absPath, err := validateExportPath(path)
	if err != nil {
		return "", err
	}
	h.log.Debugw("exporting database", "database", h.cfg.Database, "path", absPath)
	if err := runCLIWithEnv(ctx, h.cfg.dumpEnv(), mysqldump, h.cfg.dumpArgs(absPath)...); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return absPath, nil
}
