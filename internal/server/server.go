// Package server builds the MCP server and registers tools.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/SedlarDavid/localwp-mcp/internal/db"
	"github.com/SedlarDavid/localwp-mcp/internal/site"
	"github.com/SedlarDavid/localwp-mcp/internal/sqlsafety"
)

const (
	ServerName    = "localwp-mcp"
	ServerVersion = "1.0.0"
)

// Executor runs classified statements against the site database.
// *db.Handle implements it.
type Executor interface {
	Query(ctx context.Context, query string, params []any) ([]*db.Row, error)
	Exec(ctx context.Context, query string, params []any) (db.WriteResult, error)
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]db.ColumnInfo, error)
	ExportDatabase(ctx context.Context, path string) (string, error)
}

// Deps carries everything the tools act on. Tools whose dependency is nil
// are not registered.
type Deps struct {
	Selection   *site.Selection
	Database    string
	DB          Executor
	AllowWrites bool
	Registry    site.RegistrySource
	Locations   site.Locations
	Logger      *zap.SugaredLogger
}

// New returns an MCP server with all tools registered.
func New(deps *Deps) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(true))
	Register(s, deps)
	return s
}

// Register adds the tools to s. deps may be nil, in which case only ping is
// available.
func Register(s *server.MCPServer, deps *Deps) {
	t := &tools{deps: deps, log: zap.NewNop().Sugar()}
	if deps == nil {
		t.deps = &Deps{}
	} else if deps.Logger != nil {
		t.log = deps.Logger
	}

	s.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Simple health check. Returns pong."),
	), t.traced("ping", t.ping))

	if t.deps.Selection != nil {
		s.AddTool(mcp.NewTool("site_info",
			mcp.WithDescription("Show the Local site this server is connected to and how it was selected. No credentials in response."),
		), t.traced("site_info", t.siteInfo))
	}

	if t.deps.Registry != nil {
		s.AddTool(mcp.NewTool("list_sites",
			mcp.WithDescription("List every site in Local's registry with whether its MySQL server is running."),
		), t.traced("list_sites", t.listSites))
	}

	if t.deps.DB == nil {
		return
	}

	mode := "Read-only: SELECT, SHOW, DESCRIBE, DESC and EXPLAIN."
	if t.deps.AllowWrites {
		mode = "SELECT, SHOW, DESCRIBE, DESC, EXPLAIN, plus INSERT, UPDATE and DELETE. UPDATE and DELETE need params for their WHERE clause; write statements may not contain SELECT."
	}
	s.AddTool(mcp.NewTool("mysql_query",
		mcp.WithDescription("Run one SQL statement against the site's MySQL database. "+mode+
			" One statement per call. Use ? placeholders with params."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("A single SQL statement.")),
		mcp.WithArray("params", mcp.Description("Positional values for ? placeholders.")),
	), t.traced("mysql_query", t.mysqlQuery))

	s.AddTool(mcp.NewTool("list_tables",
		mcp.WithDescription("List table names in the site database."),
	), t.traced("list_tables", t.listTables))

	s.AddTool(mcp.NewTool("describe_table",
		mcp.WithDescription("Describe columns of a table (name, type, nullable, primary key, default)."),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name, e.g. wp_posts.")),
	), t.traced("describe_table", t.describeTable))

	s.AddTool(mcp.NewTool("export_database",
		mcp.WithDescription("Dump the site database to a SQL file with mysqldump."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Output file; the parent directory must exist.")),
	), t.traced("export_database", t.exportDatabase))
}

type tools struct {
	deps *Deps
	log  *zap.SugaredLogger
}

// traced logs each call with a request id at debug level.
func (t *tools) traced(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := uuid.NewString()
		start := time.Now()
		t.log.Debugw("tool call", "tool", name, "request_id", id)
		res, err := h(ctx, req)
		t.log.Debugw("tool done", "tool", name, "request_id", id,
			"elapsed", time.Since(start), "is_error", res != nil && res.IsError, "err", err)
		return res, err
	}
}

func (t *tools) ping(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(PingOutput{Message: "pong"})
}

func (t *tools) siteInfo(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(SiteInfoOutput{
		Selection:     *t.deps.Selection,
		Database:      t.deps.Database,
		WritesEnabled: t.deps.AllowWrites,
	})
}

func (t *tools) listSites(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg, err := t.deps.Registry.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ListSitesOutput{Sites: site.ListStatuses(reg, t.deps.Locations)})
}

func (t *tools) mysqlQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in QueryInput
	if err := req.BindArguments(&in); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	params := normalizeParams(in.Params)

	verdict := sqlsafety.Classify(in.SQL, params, t.deps.AllowWrites)
	t.log.Debugw("classified statement", "category", verdict.Category,
		"keyword", verdict.Keyword, "allowed", verdict.Allowed)
	if !verdict.Allowed {
		return mcp.NewToolResultError("query rejected: " + verdict.Reason()), nil
	}

	if verdict.Category == sqlsafety.CategoryWrite {
		res, err := t.deps.DB.Exec(ctx, in.SQL, params)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
	rows, err := t.deps.DB.Query(ctx, in.SQL, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(QueryOutput{Rows: rows})
}

func (t *tools) listTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tables, err := t.deps.DB.ListTables(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ListTablesOutput{Tables: tables})
}

func (t *tools) describeTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in DescribeTableInput
	if err := req.BindArguments(&in); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	if in.Table == "" {
		return mcp.NewToolResultError("table is required"), nil
	}
	cols, err := t.deps.DB.DescribeTable(ctx, in.Table)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(DescribeTableOutput{Table: in.Table, Columns: cols})
}

func (t *tools) exportDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in ExportInput
	if err := req.BindArguments(&in); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	if in.Path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	path, err := t.deps.DB.ExportDatabase(ctx, in.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ExportOutput{Path: path})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// normalizeParams turns whole JSON numbers back into integers so they bind
// as integers rather than doubles.
func normalizeParams(params []any) []any {
	if len(params) == 0 {
		return nil
	}
	out := make([]any, len(params))
	for i, p := range params {
		if f, ok := p.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			out[i] = int64(f)
			continue
		}
		out[i] = p
	}
	return out
}

// PingOutput is the structured result of the ping tool.
type PingOutput struct {
	Message string `json:"message"`
}

// SiteInfoOutput is the result of site_info.
type SiteInfoOutput struct {
	site.Selection
	Database      string `json:"database"`
	WritesEnabled bool   `json:"writes_enabled"`
}

// ListSitesOutput is the result of list_sites.
type ListSitesOutput struct {
	Sites []site.Status `json:"sites"`
}

// QueryInput is the input for mysql_query.
type QueryInput struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// QueryOutput is the result of a read-only mysql_query.
type QueryOutput struct {
	Rows []*db.Row `json:"rows"`
}

// ListTablesOutput is the result of list_tables.
type ListTablesOutput struct {
	Tables []string `json:"tables"`
}

// DescribeTableInput is the input for describe_table.
type DescribeTableInput struct {
	Table string `json:"table"`
}

// DescribeTableOutput is the result of describe_table.
type DescribeTableOutput struct {
	Table   string          `json:"table"`
	Columns []db.ColumnInfo `json:"columns"`
}

// ExportInput is the input for export_database.
type ExportInput struct {
	Path string `json:"path"`
}

// ExportOutput is the result of export_database.
type ExportOutput struct {
	Path string `json:"path"`
}
