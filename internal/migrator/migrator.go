package migrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/edustack/migrate/internal/db"
)

// Applier brings the database up to the latest schema by applying every
// pending migration exactly once, in ascending lexical name order.
type Applier struct {
	DB     *sql.DB
	Ledger *Ledger
	Source Source
}

func NewApplier(database *sql.DB, dialect db.Dialect, table string, src Source) *Applier {
	return &Applier{
		DB:     database,
		Ledger: &Ledger{DB: database, Dialect: dialect, Table: table},
		Source: src,
	}
}

// Progress is invoked per migration with stage "start", "success" or
// "error". Used by the CLI for verbose output; may be nil.
type Progress func(stage string, m Migration, err error)

// Run applies all pending migrations and returns how many were newly
// applied. The discovered set is fixed for the duration of one run.
//
// Statements within a migration execute sequentially with no transaction
// around the sequence: if statement k fails, statements 1..k-1 stay
// applied and the migration is left unrecorded, so the next run re-attempts
// the whole file. Any failure aborts the run.
func (a *Applier) Run(ctx context.Context, progress Progress) (int, error) {
	if err := a.Ledger.Ensure(ctx); err != nil {
		return 0, err
	}
	applied, err := a.Ledger.Applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("load applied migrations: %w", err)
	}
	migs, err := a.Source.Discover()
	if err != nil {
		return 0, fmt.Errorf("discover migrations: %w", err)
	}

	n := 0
	for _, m := range migs {
		if _, ok := applied[m.Name]; ok {
			continue
		}
		if progress != nil {
			progress("start", m, nil)
		}
		for i, stmt := range m.Statements {
			if _, err := a.DB.ExecContext(ctx, stmt); err != nil {
				err = fmt.Errorf("migration %s: statement %d failed: %w", m.Name, i+1, err)
				if progress != nil {
					progress("error", m, err)
				}
				return n, err
			}
		}
		if err := a.Ledger.Record(ctx, m.Name); err != nil {
			if progress != nil {
				progress("error", m, err)
			}
			return n, err
		}
		if progress != nil {
			progress("success", m, nil)
		}
		n++
	}
	return n, nil
}

// Status reports the discovered migrations alongside the applied set, for
// read-only inspection. It ensures the ledger exists so a fresh database
// shows everything as pending instead of erroring.
func (a *Applier) Status(ctx context.Context) ([]Migration, map[string]Record, error) {
	if err := a.Ledger.Ensure(ctx); err != nil {
		return nil, nil, err
	}
	applied, err := a.Ledger.Applied(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load applied migrations: %w", err)
	}
	migs, err := a.Source.Discover()
	if err != nil {
		return nil, nil, fmt.Errorf("discover migrations: %w", err)
	}
	return migs, applied, nil
}
