package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/candidus/assessor/internal/attempt"
	"github.com/candidus/assessor/internal/rubric"
	"github.com/candidus/assessor/internal/timer"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Driver selects the SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	driver  Driver
	dialect string
}

// Open connects to the database at dsn, applies SQLite pragmas where
// relevant and creates the schema if it does not exist.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName, dia string
	switch driver {
	case DriverSQLite, "":
		driver, drvName, dia = DriverSQLite, "sqlite", dialect.SQLite
	case DriverPostgres:
		drvName, dia = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer connection; pragmas apply per connection.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	} else if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, driver: driver, dialect: dia}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the backend in use.
func (s *Store) Driver() Driver {
	return s.driver
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AttemptRepo returns an attempt.Store backed by this database.
func (s *Store) AttemptRepo(clock timer.Clock) attempt.Store {
	return &attemptRepo{s: s, clock: clock}
}

// RubricRepo returns a rubric.Repo backed by this database.
func (s *Store) RubricRepo(clock timer.Clock) rubric.Repo {
	return &rubricRepo{s: s, clock: clock}
}

// Journal returns an attempt.Journal backed by this database.
func (s *Store) Journal() attempt.Journal {
	return &journal{s: s}
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			candidate_id TEXT NOT NULL,
			component_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS attempts_candidate ON attempts (candidate_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS rubric_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			updated_at BIGINT NOT NULL,
			data TEXT NOT NULL
		)`,
	}
	if driver == DriverPostgres {
		stmts = append(stmts, `CREATE TABLE IF NOT EXISTS attempt_events (
			seq BIGSERIAL PRIMARY KEY,
			attempt_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			item INTEGER NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			at BIGINT NOT NULL
		)`)
	} else {
		stmts = append(stmts, `CREATE TABLE IF NOT EXISTS attempt_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			item INTEGER NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			at BIGINT NOT NULL
		)`)
	}
	stmts = append(stmts, `CREATE INDEX IF NOT EXISTS attempt_events_attempt ON attempt_events (attempt_id, seq)`)

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. ASSESSOR_DB environment variable
// 2. $XDG_DATA_HOME/assessor/assessor.db
// 3. ~/.local/share/assessor/assessor.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ASSESSOR_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "assessor", "assessor.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
