package migrator

import "time"

// Record is one row of the ledger table.
type Record struct {
	ID        int64
	Name      string
	AppliedAt time.Time
}

// Migration is a discovered migration file, split into its statements.
// A Migration is pending when the ledger has no Record with the same Name.
type Migration struct {
	Name       string
	Path       string
	Statements []string
}
