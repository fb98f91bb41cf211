package db

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL opens a MySQL handle, forcing parseTime so DATETIME columns
// scan into time.Time.
func OpenMySQL(dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("mysql", normalizeMySQLDSN(dsn))
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return sqlDB, nil
}

// normalizeMySQLDSN appends parseTime=true unless the DSN already sets it.
func normalizeMySQLDSN(dsn string) string {
	if strings.Contains(strings.ToLower(dsn), "parsetime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
