// Package config loads server settings from an optional config file and
// environment variables. The database password is never logged or exposed
// to tool responses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SedlarDavid/localwp-mcp/internal/site"
)

// Env var names. Each one overrides the matching config file key.
const (
	EnvSiteID       = "SITE_ID"
	EnvSiteName     = "SITE_NAME"
	EnvRunDir       = "LOCAL_RUN_DIR"
	EnvSitesJSON    = "LOCAL_SITES_JSON"
	EnvAllowWrites  = "LOCALWP_ALLOW_WRITES"
	EnvDebug        = "LOCALWP_DEBUG"
	EnvDebugFilter  = "DEBUG"
	EnvDatabase     = "MYSQL_DB"
	EnvUser         = "MYSQL_USER"
	EnvPassword     = "MYSQL_PASS"
	EnvScanTimeout  = "LOCALWP_SCAN_TIMEOUT"
	debugNamespace  = "mcp-local-wp"
	defaultDatabase = "local"
	defaultUser     = "root"
	defaultPassword = "root"
)

// DefaultConfigDir is the directory for the optional config file.
// Config file path: ~/.localwp-mcp/config.yaml
const DefaultConfigDir = ".localwp-mcp"
const ConfigFileName = "config.yaml"

// Config holds the effective settings.
type Config struct {
	SiteID      string
	SiteName    string
	RunDir      string
	SitesJSON   string
	AllowWrites bool
	Debug       bool
	ScanTimeout time.Duration

	Database string
	User     string
	password string
}

// Password returns the MySQL password. For use only by the db layer; never log the result.
func (c *Config) Password() string {
	return c.password
}

// Summary is safe to log or return to tools: no credentials.
type Summary struct {
	SiteID      string `json:"site_id,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	RunDir      string `json:"run_dir,omitempty"`
	SitesJSON   string `json:"sites_json,omitempty"`
	AllowWrites bool   `json:"allow_writes"`
	Database    string `json:"database"`
	User        string `json:"user"`
	ScanTimeout string `json:"scan_timeout"`
}

// Summary returns the loggable subset of c.
func (c *Config) Summary() Summary {
	return Summary{
		SiteID:      c.SiteID,
		SiteName:    c.SiteName,
		RunDir:      c.RunDir,
		SitesJSON:   c.SitesJSON,
		AllowWrites: c.AllowWrites,
		Database:    c.Database,
		User:        c.User,
		ScanTimeout: c.ScanTimeout.String(),
	}
}

// Load reads ~/.localwp-mcp/config.yaml if present, then applies the
// environment on top.
func Load() (*Config, error) {
	configPath, err := configFilePath()
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file.
func LoadFrom(configPath string) (*Config, error) {
	c := &Config{
		Database:    defaultDatabase,
		User:        defaultUser,
		password:    defaultPassword,
		ScanTimeout: site.DefaultScanTimeout,
	}
	if configPath != "" {
		if err := c.loadFile(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return c, nil
}

func configFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(home, DefaultConfigDir, ConfigFileName)
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p, nil
}

type fileFormat struct {
	SiteID      string `yaml:"site_id"`
	SiteName    string `yaml:"site_name"`
	RunDir      string `yaml:"run_dir"`
	SitesJSON   string `yaml:"sites_json"`
	AllowWrites *bool  `yaml:"allow_writes"`
	Debug       *bool  `yaml:"debug"`
	Database    string `yaml:"database"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	ScanTimeout string `yaml:"scan_timeout"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	setString(&c.SiteID, f.SiteID)
	setString(&c.SiteName, f.SiteName)
	setString(&c.RunDir, f.RunDir)
	setString(&c.SitesJSON, f.SitesJSON)
	setString(&c.Database, f.Database)
	setString(&c.User, f.User)
	setString(&c.password, f.Password)
	if f.AllowWrites != nil {
		c.AllowWrites = *f.AllowWrites
	}
	if f.Debug != nil {
		c.Debug = *f.Debug
	}
	if f.ScanTimeout != "" {
		d, err := time.ParseDuration(f.ScanTimeout)
		if err != nil {
			return fmt.Errorf("scan_timeout: %w", err)
		}
		c.ScanTimeout = d
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(&c.SiteID, getenv(EnvSiteID))
	setString(&c.SiteName, getenv(EnvSiteName))
	setString(&c.RunDir, getenv(EnvRunDir))
	setString(&c.SitesJSON, getenv(EnvSitesJSON))
	setString(&c.Database, getenv(EnvDatabase))
	setString(&c.User, getenv(EnvUser))
	setString(&c.password, getenv(EnvPassword))

	if v := getenv(EnvAllowWrites); v != "" {
		c.AllowWrites = parseFlag(v)
	}
	if strings.Contains(getenv(EnvDebugFilter), debugNamespace) {
		c.Debug = true
	}
	if v := getenv(EnvDebug); v != "" {
		c.Debug = parseFlag(v)
	}
	if v := getenv(EnvScanTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvScanTimeout, err)
		}
		c.ScanTimeout = d
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// parseFlag accepts true/1/yes/on in any case.
func parseFlag(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v == "yes" || v == "on"
}
