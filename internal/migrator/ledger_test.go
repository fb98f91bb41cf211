package migrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/edustack/migrate/internal/db"
)

func TestLedgerSQLiteRoundTrip(t *testing.T) {
	sqlDB, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	l := &Ledger{DB: sqlDB, Dialect: db.SQLite, Table: "schema_migrations"}

	// Ensure must be idempotent across startups.
	if err := l.Ensure(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := l.Ensure(ctx); err != nil {
		t.Fatalf("ensure (repeat): %v", err)
	}

	if err := l.Record(ctx, "001_init.sql"); err != nil {
		t.Fatalf("record: %v", err)
	}
	applied, err := l.Applied(ctx)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	rec, ok := applied["001_init.sql"]
	if !ok {
		t.Fatal("recorded migration missing from applied set")
	}
	if rec.AppliedAt.IsZero() {
		t.Fatal("applied_at not populated")
	}
}

func TestLedgerRecordDuplicateNameFails(t *testing.T) {
	sqlDB, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	l := &Ledger{DB: sqlDB, Dialect: db.SQLite, Table: "schema_migrations"}
	if err := l.Ensure(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := l.Record(ctx, "001_init.sql"); err != nil {
		t.Fatalf("record: %v", err)
	}
	err = l.Record(ctx, "001_init.sql")
	if err == nil {
		t.Fatal("expected unique-key violation on duplicate record")
	}
	if !strings.Contains(err.Error(), "001_init.sql") {
		t.Fatalf("error should name the migration: %v", err)
	}
}

func TestLedgerEnsurePropagatesError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnError(errors.New("access denied"))

	l := &Ledger{DB: mockDB, Dialect: db.MySQL, Table: "schema_migrations"}
	if err := l.Ensure(context.Background()); err == nil {
		t.Fatal("expected ensure error")
	}
}

func TestLedgerAppliedScansRows(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "applied_at"}).
		AddRow(int64(1), "001_init.sql", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)).
		AddRow(int64(2), "002_add_col.sql", "2026-01-03 00:00:00")
	mock.ExpectQuery("SELECT id, name, applied_at").WillReturnRows(rows)

	l := &Ledger{DB: mockDB, Dialect: db.MySQL, Table: "schema_migrations"}
	applied, err := l.Applied(context.Background())
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 records, got %d", len(applied))
	}
	if applied["002_add_col.sql"].AppliedAt.Year() != 2026 {
		t.Fatalf("timestamp not parsed: %v", applied["002_add_col.sql"].AppliedAt)
	}
}

func TestLedgerRecordConflictSurfacesDriverError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO schema_migrations").
		WillReturnError(errors.New("Error 1062: Duplicate entry '001_init.sql'"))

	l := &Ledger{DB: mockDB, Dialect: db.MySQL, Table: "schema_migrations"}
	err = l.Record(context.Background(), "001_init.sql")
	if err == nil || !strings.Contains(err.Error(), "Duplicate entry") {
		t.Fatalf("expected wrapped driver conflict, got %v", err)
	}
}
