package db

import (
	"context"
	"database/sql"
)

// queryer is the subset of *sql.DB the schema helpers need.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// dialect answers schema questions for one server flavor.
type dialect interface {
	listTables(ctx context.Context, q queryer) ([]string, error)
	describeTable(ctx context.Context, q queryer, table string) ([]ColumnInfo, error)
}

// mysqlDialect reads INFORMATION_SCHEMA for the connected database.
type mysqlDialect struct{}

func (mysqlDialect) listTables(ctx context.Context, q queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`)
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

func (mysqlDialect) describeTable(ctx context.Context, q queryer, table string) ([]ColumnInfo, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.COLUMN_NAME, c.COLUMN_TYPE,
		       c.IS_NULLABLE = 'YES',
		       CASE WHEN c.COLUMN_KEY = 'PRI' THEN 1 ELSE 0 END,
		       c.COLUMN_DEFAULT, c.EXTRA
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = DATABASE() AND c.TABLE_NAME = ?
		ORDER BY c.ORDINAL_POSITION`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		var nullable, isPK int
		var def sql.NullString
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &isPK, &def, &c.Extra); err != nil {
			return nil, err
		}
		c.Nullable = nullable == 1
		c.IsPK = isPK == 1
		if def.Valid {
			c.Default = &def.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}
