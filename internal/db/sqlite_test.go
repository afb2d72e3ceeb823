package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// sqliteDialect answers schema questions for the in-memory stand-in
// database the handle tests run against.
type sqliteDialect struct{}

func (sqliteDialect) listTables(ctx context.Context, q queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (sqliteDialect) describeTable(ctx context.Context, q queryer, table string) ([]ColumnInfo, error) {
	// table_info returns: cid, name, type, notnull, dflt_value, pk
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteIdentifier(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var cid int
		var name, colType string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		c := ColumnInfo{
			Name:     name,
			Type:     colType,
			Nullable: notnull == 0,
			IsPK:     pk > 0,
		}
		if dflt.Valid {
			c.Default = &dflt.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

var sqliteIdentReplacer = strings.NewReplacer(`"`, `""`)

func quoteSQLiteIdentifier(name string) string {
	return `"` + sqliteIdentReplacer.Replace(name) + `"`
}

// sqliteOpener opens a fresh in-memory database seeded with a wp_posts
// table and counts how often it is called.
type sqliteOpener struct {
	calls int
	err   error
}

func (o *sqliteOpener) open(context.Context) (*sql.DB, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE wp_posts (
		ID INTEGER PRIMARY KEY AUTOINCREMENT,
		post_title TEXT NOT NULL,
		post_status TEXT DEFAULT 'draft'
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
