package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect selects the SQL flavor used for the ledger table DDL.
type Dialect string

const (
	SQLite Dialect = "sqlite"
	MySQL  Dialect = "mysql"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case SQLite, MySQL:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unknown driver %q (want sqlite or mysql)", s)
}

// Open opens a database handle for the given dialect. The DSN is a file
// path (or :memory:) for sqlite and a go-sql-driver DSN for mysql.
func Open(d Dialect, dsn string) (*sql.DB, error) {
	switch d {
	case SQLite:
		return OpenSQLite(dsn)
	case MySQL:
		return OpenMySQL(dsn)
	}
	return nil, fmt.Errorf("unknown dialect %q", d)
}

// EnsureLedger creates the migration ledger table if it does not exist.
// Safe to call on every startup.
func EnsureLedger(ctx context.Context, db *sql.DB, d Dialect, table string) error {
	var ddl string
	switch d {
	case MySQL:
		ddl = fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id BIGINT PRIMARY KEY AUTO_INCREMENT,
  name VARCHAR(255) NOT NULL,
  applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uniq_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`, table)
	default:
		ddl = fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`, table)
	}
	_, err := db.ExecContext(ctx, ddl)
	return err
}
