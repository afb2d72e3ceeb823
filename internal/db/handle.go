// Package db executes statements against the selected site's MySQL server
// through one lazily opened, serialized connection.
package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-sql-driver/mysql"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

var (
	ErrIdentifierInvalid = errors.New("invalid identifier")
	ErrQueryFailed       = errors.New("query failed")
	ErrClosed            = errors.New("database handle is closed")
	ErrTableNotFound     = errors.New("table not found")
)

// Phase tags where a statement failed.
type Phase string

const (
	PhaseOpen  Phase = "open"
	PhaseQuery Phase = "query"
	PhaseScan  Phase = "scan"
	PhaseExec  Phase = "exec"
)

// QueryError wraps a driver error with the phase it occurred in. errors.Is
// matches ErrQueryFailed.
type QueryError struct {
	Phase Phase
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrQueryFailed, e.Phase, e.Err)
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Row is one result row with columns in result-set order.
type Row = orderedmap.OrderedMap[string, any]

// WriteResult summarizes an INSERT, UPDATE or DELETE. AffectedRows is the
// changed-row count: the connection does not set clientFoundRows, so MySQL
// does not report matched-but-unchanged rows.
type WriteResult struct {
	AffectedRows int64 `json:"affected_rows"`
	InsertID     int64 `json:"insert_id"`
}

// ColumnInfo describes one column for describe_table.
type ColumnInfo struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	IsPK     bool    `json:"is_pk"`
	Default  *string `json:"default"`
	Extra    string  `json:"extra,omitempty"`
}

// Opener creates the connection pool on first use.
type Opener func(ctx context.Context) (*sql.DB, error)

// Handle owns at most one open MySQL connection. Statements are serialized;
// a broken connection is dropped and reopened by the next statement.
type Handle struct {
	open    Opener
	dialect dialect
	cfg     ConnectionConfig
	log     *zap.SugaredLogger

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// New returns a Handle for cfg. Nothing is dialed until the first statement.
func New(cfg ConnectionConfig, log *zap.SugaredLogger) *Handle {
	h := newHandle(openMySQL(cfg), mysqlDialect{}, log)
	h.cfg = cfg
	return h
}

func newHandle(open Opener, d dialect, log *zap.SugaredLogger) *Handle {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handle{open: open, dialect: d, log: log}
}

func openMySQL(cfg ConnectionConfig) Opener {
	return func(context.Context) (*sql.DB, error) {
		connector, err := mysql.NewConnector(cfg.MySQLConfig())
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	}
}

// do runs fn with the live pool while holding the handle lock.
func (h *Handle) do(ctx context.Context, fn func(db *sql.DB) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.db == nil {
		db, err := h.connect(ctx)
		if err != nil {
			return &QueryError{Phase: PhaseOpen, Err: err}
		}
		h.db = db
	}
	err := fn(h.db)
	if isConnError(err) {
		h.log.Debugw("dropping broken database connection", "err", err)
		_ = h.db.Close()
		h.db = nil
	}
	return err
}

func (h *Handle) connect(ctx context.Context) (*sql.DB, error) {
	db, err := h.open(ctx)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	h.log.Debugw("database connection opened", "target", h.cfg)
	return db, nil
}

func isConnError(err error) bool {
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn)
}

// Ping opens the connection if needed and checks it is alive.
func (h *Handle) Ping(ctx context.Context) error {
	return h.do(ctx, func(db *sql.DB) error {
		if err := db.PingContext(ctx); err != nil {
			return &QueryError{Phase: PhaseQuery, Err: err}
		}
		return nil
	})
}

// Query runs a row-returning statement. The caller classifies sql first.
func (h *Handle) Query(ctx context.Context, query string, params []any) ([]*Row, error) {
	var out []*Row
	err := h.do(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, params...)
		if err != nil {
			return &QueryError{Phase: PhaseQuery, Err: err}
		}
		defer rows.Close()
		out, err = scanRows(rows)
		if err != nil {
			return &QueryError{Phase: PhaseScan, Err: err}
		}
		return nil
	})
	return out, err
}

// Exec runs a write statement. The caller classifies sql first.
func (h *Handle) Exec(ctx context.Context, query string, params []any) (WriteResult, error) {
	var res WriteResult
	err := h.do(ctx, func(db *sql.DB) error {
		r, err := db.ExecContext(ctx, query, params...)
		if err != nil {
			return &QueryError{Phase: PhaseExec, Err: err}
		}
		res.AffectedRows, _ = r.RowsAffected()
		res.InsertID, _ = r.LastInsertId()
		return nil
	})
	return res, err
}

// ListTables returns the base tables of the connected database.
func (h *Handle) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := h.do(ctx, func(db *sql.DB) error {
		var err error
		names, err = h.dialect.listTables(ctx, db)
		if err != nil {
			return &QueryError{Phase: PhaseQuery, Err: err}
		}
		return nil
	})
	return names, err
}

// DescribeTable returns column metadata for table in the connected database.
func (h *Handle) DescribeTable(ctx context.Context, table string) ([]ColumnInfo, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}
	var cols []ColumnInfo
	err := h.do(ctx, func(db *sql.DB) error {
		var err error
		cols, err = h.dialect.describeTable(ctx, db, table)
		if err != nil {
			return &QueryError{Phase: PhaseQuery, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	return cols, nil
}

// Close releases the connection. Further statements fail with ErrClosed.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_$]{1,64}$`)

// ValidateIdentifier accepts unquoted MySQL identifiers only.
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrIdentifierInvalid, name)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]*Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []*Row{}
	scan := make([]any, len(cols))
	for i := range scan {
		scan[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		r := orderedmap.New[string, any](len(cols))
		for i, c := range cols {
			r.Set(c, normalizeValue(*(scan[i].(*any))))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// normalizeValue turns driver byte slices into strings so rows encode as
// readable JSON.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
