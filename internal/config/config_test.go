package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SedlarDavid/localwp-mcp/internal/site"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvSiteID, EnvSiteName, EnvRunDir, EnvSitesJSON, EnvAllowWrites,
		EnvDebug, EnvDebugFilter, EnvDatabase, EnvUser, EnvPassword, EnvScanTimeout,
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom_defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Database != "local" || cfg.User != "root" || cfg.Password() != "root" {
		t.Errorf("credentials = %s/%s/%s, want local/root/root", cfg.Database, cfg.User, cfg.Password())
	}
	if cfg.AllowWrites || cfg.Debug {
		t.Errorf("writes and debug should default off: %+v", cfg)
	}
	if cfg.ScanTimeout != site.DefaultScanTimeout {
		t.Errorf("ScanTimeout = %s, want %s", cfg.ScanTimeout, site.DefaultScanTimeout)
	}
}

func TestLoadFrom_fileOnly(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
site_id: abc
site_name: My Site
run_dir: /tmp/run
sites_json: /tmp/sites.json
allow_writes: true
debug: true
database: wp
user: admin
password: s3cret
scan_timeout: 3s
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.SiteID != "abc" || cfg.SiteName != "My Site" {
		t.Errorf("site = %q/%q", cfg.SiteID, cfg.SiteName)
	}
	if cfg.RunDir != "/tmp/run" || cfg.SitesJSON != "/tmp/sites.json" {
		t.Errorf("locations = %q/%q", cfg.RunDir, cfg.SitesJSON)
	}
	if !cfg.AllowWrites || !cfg.Debug {
		t.Error("allow_writes and debug should be true")
	}
	if cfg.Database != "wp" || cfg.User != "admin" || cfg.Password() != "s3cret" {
		t.Errorf("credentials = %s/%s", cfg.Database, cfg.User)
	}
	if cfg.ScanTimeout != 3*time.Second {
		t.Errorf("ScanTimeout = %s", cfg.ScanTimeout)
	}
}

func TestLoadFrom_envOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "site_id: from-file\nallow_writes: true\nuser: fileuser\n")
	t.Setenv(EnvSiteID, "from-env")
	t.Setenv(EnvAllowWrites, "false")
	t.Setenv(EnvScanTimeout, "250ms")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.SiteID != "from-env" {
		t.Errorf("SiteID = %q, want from-env", cfg.SiteID)
	}
	if cfg.AllowWrites {
		t.Error("env should turn writes off")
	}
	if cfg.User != "fileuser" {
		t.Errorf("User = %q, want file value when env unset", cfg.User)
	}
	if cfg.ScanTimeout != 250*time.Millisecond {
		t.Errorf("ScanTimeout = %s", cfg.ScanTimeout)
	}
}

func TestLoadFrom_debugFlags(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		debug bool
	}{
		{"off", nil, false},
		{"DEBUG namespace", map[string]string{EnvDebugFilter: "express,mcp-local-wp"}, true},
		{"DEBUG other", map[string]string{EnvDebugFilter: "express"}, false},
		{"LOCALWP_DEBUG", map[string]string{EnvDebug: "1"}, true},
		{"LOCALWP_DEBUG wins", map[string]string{EnvDebugFilter: "mcp-local-wp", EnvDebug: "no"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadFrom("")
			if err != nil {
				t.Fatalf("LoadFrom: %v", err)
			}
			if cfg.Debug != tt.debug {
				t.Errorf("Debug = %v, want %v", cfg.Debug, tt.debug)
			}
		})
	}
}

func TestLoadFrom_errors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFrom(writeConfig(t, "scan_timeout: soon\n")); err == nil {
		t.Error("expected error for bad scan_timeout in file")
	}
	if _, err := LoadFrom(writeConfig(t, "site_id: [\n")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	t.Setenv(EnvScanTimeout, "ten")
	if _, err := LoadFrom(""); err == nil || !strings.Contains(err.Error(), EnvScanTimeout) {
		t.Errorf("err = %v, want error naming %s", err, EnvScanTimeout)
	}
}

func TestParseFlag(t *testing.T) {
	for v, want := range map[string]bool{
		"true": true, "TRUE": true, "1": true, "yes": true, "on": true,
		"false": false, "0": false, "no": false, "": false, "maybe": false,
	} {
		if got := parseFlag(v); got != want {
			t.Errorf("parseFlag(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestSummary_NoPassword(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPassword, "hunter2")
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	out, err := json.Marshal(cfg.Summary())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "hunter2") {
		t.Errorf("summary leaks password: %s", out)
	}
	if cfg.Password() != "hunter2" {
		t.Errorf("Password() = %q", cfg.Password())
	}
}
