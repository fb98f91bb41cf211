package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/edustack/migrate/internal/db"
)

// Ledger is the durable record of applied migrations. The unique key on
// name is what makes Record reject a second application of the same
// migration.
type Ledger struct {
	DB      *sql.DB
	Dialect db.Dialect
	Table   string
}

// Ensure creates the ledger table if absent. Safe to call on every run.
func (l *Ledger) Ensure(ctx context.Context) error {
	if err := db.EnsureLedger(ctx, l.DB, l.Dialect, l.Table); err != nil {
		return fmt.Errorf("ensure ledger table %s: %w", l.Table, err)
	}
	return nil
}

// Applied returns every recorded migration keyed by name, reflecting all
// prior successful Record calls including those from earlier process runs.
func (l *Ledger) Applied(ctx context.Context) (map[string]Record, error) {
	rows, err := l.DB.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, name, applied_at FROM %s ORDER BY name`, l.Table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]Record{}
	for rows.Next() {
		var r Record
		var appliedAt string
		if err := rows.Scan(&r.ID, &r.Name, &appliedAt); err != nil {
			return nil, err
		}
		if r.AppliedAt, err = parseTimestamp(appliedAt); err != nil {
			return nil, fmt.Errorf("ledger row %s: %w", r.Name, err)
		}
		out[r.Name] = r
	}
	return out, rows.Err()
}

// parseTimestamp handles the formats the two dialects hand back: sqlite's
// CURRENT_TIMESTAMP text and driver-converted time.Time values.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized applied_at timestamp %q", s)
}

// Record durably appends a row for name. A duplicate name violates the
// unique key and fails; callers must treat that as fatal, since by the
// time Record runs the migration's statements have already executed.
func (l *Ledger) Record(ctx context.Context, name string) error {
	_, err := l.DB.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (name) VALUES (?)`, l.Table), name)
	if err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	return nil
}
