package db

import (
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/SedlarDavid/localwp-mcp/internal/site"
)

// Local provisions every site with these credentials.
const (
	DefaultUser     = "root"
	DefaultPassword = "root"
	DefaultDatabase = "local"
)

// Credentials are the login settings that do not come from site detection.
// Empty fields fall back to the Local defaults.
type Credentials struct {
	User     string
	Password string
	Database string
}

// ConnectionConfig describes how to reach one site's MySQL over its unix
// socket. Never log Password.
type ConnectionConfig struct {
	SocketPath         string
	User               string
	Password           string
	Database           string
	MultipleStatements bool
	Timezone           string
}

// BuildConnectionConfig derives connection settings from a detected site.
// Multiple statements per call are always disabled and times are UTC.
func BuildConnectionConfig(info site.Info, creds Credentials) ConnectionConfig {
	return ConnectionConfig{
		SocketPath:         info.SocketPath,
		User:               orDefault(creds.User, DefaultUser),
		Password:           orDefault(creds.Password, DefaultPassword),
		Database:           orDefault(creds.Database, DefaultDatabase),
		MultipleStatements: false,
		Timezone:           "Z",
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// MySQLConfig converts c into a go-sql-driver/mysql config.
func (c ConnectionConfig) MySQLConfig() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "unix"
	cfg.Addr = c.SocketPath
	cfg.DBName = c.Database
	cfg.MultiStatements = c.MultipleStatements
	// WriteResult.AffectedRows reports changed rows, not matched rows.
	cfg.ClientFoundRows = false
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"time_zone": "'" + sessionOffset(c.Timezone) + "'"}
	return cfg
}

// DSN returns the driver DSN. It contains the password; never log it.
func (c ConnectionConfig) DSN() string {
	return c.MySQLConfig().FormatDSN()
}

// String is safe to log.
func (c ConnectionConfig) String() string {
	return c.User + "@unix(" + c.SocketPath + ")/" + c.Database
}

// sessionOffset maps "Z" to the offset MySQL expects for time_zone.
func sessionOffset(tz string) string {
	if tz == "" || tz == "Z" {
		return "+00:00"
	}
	return tz
}
