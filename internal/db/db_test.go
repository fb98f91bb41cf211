package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestParseDialect(t *testing.T) {
	if d, err := ParseDialect("sqlite"); err != nil || d != SQLite {
		t.Fatalf("sqlite: %v %v", d, err)
	}
	if d, err := ParseDialect("mysql"); err != nil || d != MySQL {
		t.Fatalf("mysql: %v %v", d, err)
	}
	if _, err := ParseDialect("postgres"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenSQLiteAndEnsureLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	sqlDB, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	if err := EnsureLedger(ctx, sqlDB, SQLite, "schema_migrations"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// repeat call must be a no-op
	if err := EnsureLedger(ctx, sqlDB, SQLite, "schema_migrations"); err != nil {
		t.Fatalf("ensure (repeat): %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "INSERT INTO schema_migrations (name) VALUES ('001_init.sql')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "INSERT INTO schema_migrations (name) VALUES ('001_init.sql')"); err == nil {
		t.Fatal("expected unique constraint violation on duplicate name")
	}
}

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"user:pass@tcp(localhost:3306)/db", "user:pass@tcp(localhost:3306)/db?parseTime=true"},
		{"user:pass@tcp(localhost:3306)/db?multiStatements=true", "user:pass@tcp(localhost:3306)/db?multiStatements=true&parseTime=true"},
		{"user:pass@tcp(localhost:3306)/db?parseTime=false", "user:pass@tcp(localhost:3306)/db?parseTime=false"},
	}
	for _, c := range cases {
		if got := normalizeMySQLDSN(c.in); got != c.want {
			t.Fatalf("normalize %q: got %q want %q", c.in, got, c.want)
		}
	}
}
