package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edustack/migrate/internal/config"
	"github.com/edustack/migrate/internal/db"
	"github.com/edustack/migrate/internal/lock"
	"github.com/edustack/migrate/internal/logger"
	"github.com/edustack/migrate/internal/migrator"
)

const (
	exitOK     = 0
	exitFail   = 1
	exitUsage  = 2
	exitLocked = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		usage()
		return exitOK
	}
	cmd := os.Args[1]
	global := flag.NewFlagSet("global", flag.ContinueOnError)
	driver := global.String("driver", "", "Database driver: sqlite or mysql (or DB_DRIVER)")
	dsn := global.String("dsn", "", "Database DSN; a file path for sqlite (or DB_DSN)")
	dir := global.String("dir", "", "Migrations directory (or MIGRATIONS_DIR)")
	table := global.String("table", "", "Migrations ledger table (default schema_migrations)")
	conf := global.String("config", "", "Optional YAML config path")
	jsonOut := global.Bool("json", false, "JSON logs")
	verbose := global.Bool("verbose", false, "Verbose per-migration logs")
	lockTimeout := global.Int("lock-timeout", 0, "Advisory lock timeout seconds, mysql only (or LOCK_TIMEOUT_SEC)")

	argStart := 2
	switch cmd {
	case "up", "status":
		// no extra args
	case "create":
		// the name is positional and comes before any flags
		if len(os.Args) < 3 || strings.HasPrefix(os.Args[2], "-") {
			fmt.Fprintln(os.Stderr, "create requires a <name>")
			return exitUsage
		}
		argStart = 3
	default:
		usage()
		return exitUsage
	}
	if err := global.Parse(os.Args[argStart:]); err != nil {
		return exitUsage
	}

	cfg, err := config.LoadYAML(*conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", *conf, err)
		return exitUsage
	}
	cfg = config.MergeEnv(cfg)
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *dsn != "" {
		cfg.DSN = *dsn
	}
	if *dir != "" {
		cfg.Dir = *dir
	}
	if *table != "" {
		cfg.MigrationsTable = *table
	}
	cfg.JSON = *jsonOut
	if *lockTimeout > 0 {
		cfg.LockTimeoutSec = *lockTimeout
	}

	log := logger.New(cfg.JSON)

	if cmd == "create" {
		name := os.Args[2]
		path, err := createMigration(cfg.Dir, name)
		if err != nil {
			log.Error("create failed", map[string]any{"error": err.Error()})
			return exitFail
		}
		log.Info("created migration", map[string]any{"path": path})
		return exitOK
	}

	dialect, err := db.ParseDialect(cfg.Driver)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if cfg.DSN == "" {
		fmt.Fprintln(os.Stderr, "--dsn or DB_DSN is required")
		return exitUsage
	}
	database, err := db.Open(dialect, cfg.DSN)
	if err != nil {
		log.Error("db open failed", map[string]any{"error": err.Error()})
		return exitFail
	}
	defer database.Close()

	ctx := context.Background()

	// Advisory lock serializes concurrent runs on mysql. Sqlite needs none:
	// the single-writer file lock already serializes.
	if dialect == db.MySQL {
		key := lock.KeyFor(extractDBName(cfg.DSN), cfg.MigrationsTable)
		l := lock.NewMySQL(key)
		if err := l.Acquire(ctx, database, cfg.LockTimeout()); err != nil {
			log.Error("failed to acquire lock", map[string]any{"error": err.Error(), "key": key})
			return exitLocked
		}
		defer func() { _ = l.Release(ctx) }()
	}

	app := migrator.NewApplier(database, dialect, cfg.MigrationsTable, migrator.Source{Dir: cfg.Dir})

	switch cmd {
	case "up":
		if _, err := os.Stat(cfg.Dir); errors.Is(err, fs.ErrNotExist) {
			log.Warn("migrations directory missing, nothing to apply", map[string]any{"dir": cfg.Dir})
		}
		var progress migrator.Progress
		if *verbose {
			progress = func(stage string, m migrator.Migration, err error) {
				fields := map[string]any{"name": m.Name, "statements": len(m.Statements)}
				switch stage {
				case "start":
					log.Info("migrate.start", fields)
				case "success":
					log.Info("migrate.success", fields)
				case "error":
					fields["error"] = err.Error()
					log.Error("migrate.error", fields)
				}
			}
		}
		n, err := app.Run(ctx, progress)
		if err != nil {
			log.Error("migration run failed", map[string]any{"error": err.Error(), "applied": n})
			return exitFail
		}
		log.Info(fmt.Sprintf("Applied %d migration(s)", n), nil)
		return exitOK
	case "status":
		migs, applied, err := app.Status(ctx)
		if err != nil {
			log.Error("status failed", map[string]any{"error": err.Error()})
			return exitFail
		}
		printStatus(log, migs, applied)
		return exitOK
	default:
		usage()
		return exitUsage
	}
}

func usage() {
	fmt.Println(`migrate - schema migration runner

USAGE:
  migrate <command> [args] [--flags]

COMMANDS:
  up               Apply all pending migrations in lexical file-name order
  status           Show applied/pending state per migration
  create <name>    Scaffold <timestamp>_<name>.sql in the migrations dir

GLOBAL FLAGS:
  --driver <name>        sqlite (default) or mysql (or DB_DRIVER)
  --dsn <dsn>            Database DSN; file path for sqlite (or DB_DSN)
  --dir <path>           Migrations directory (default ./migrations)
  --table <name>         Ledger table (default schema_migrations)
  --config <path>        Optional YAML config path
  --json                 JSON logs
  --verbose              Verbose per-migration logs
  --lock-timeout <sec>   Advisory lock timeout, mysql only (default 30)

EXAMPLES:
  migrate up --driver sqlite --dsn ./app.db --dir ./migrations
  migrate up --driver mysql --dsn "$DSN" --dir ./migrations --verbose
  migrate status --driver sqlite --dsn ./app.db --json
  migrate create add_courses_table --dir ./migrations`)
}

func printStatus(log *logger.Logger, migs []migrator.Migration, applied map[string]migrator.Record) {
	type item struct {
		Name      string `json:"name"`
		Status    string `json:"status"` // applied|pending
		AppliedAt string `json:"applied_at,omitempty"`
	}
	out := make([]item, 0, len(migs))
	pending := 0
	for _, m := range migs {
		if rec, ok := applied[m.Name]; ok {
			out = append(out, item{Name: m.Name, Status: "applied", AppliedAt: rec.AppliedAt.UTC().Format(time.RFC3339)})
		} else {
			pending++
			out = append(out, item{Name: m.Name, Status: "pending"})
		}
	}
	if log.JSONEnabled() {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(out)
		return
	}
	for _, it := range out {
		fmt.Printf("%-40s %-8s %s\n", it.Name, it.Status, it.AppliedAt)
	}
	fmt.Printf("%d migration(s), %d pending\n", len(out), pending)
}

func createMigration(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", ts, sanitize(name)))
	if err := os.WriteFile(path, []byte("-- write your migration here\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func sanitize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

func extractDBName(dsn string) string {
	// user:pass@tcp(127.0.0.1:3306)/dbname?params
	i := strings.LastIndex(dsn, "/")
	if i == -1 || i == len(dsn)-1 {
		return "db"
	}
	rest := dsn[i+1:]
	if j := strings.Index(rest, "?"); j != -1 {
		return rest[:j]
	}
	return rest
}
