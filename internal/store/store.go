// Package store is the device-local record store: assessment definitions,
// graded attempt records, and the durable session cache, all in one SQLite
// file. The session engine treats these as three independent collaborators
// (definition source, result store, key-value cache); this package binds
// them to the same database.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and hands out repositories.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn, applies the recommended
// pragmas, and runs migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Definitions returns the assessment definition repository.
func (s *Store) Definitions() *DefinitionRepo {
	return &DefinitionRepo{db: s.db}
}

// Attempts returns the attempt record repository.
func (s *Store) Attempts() *AttemptRepo {
	return &AttemptRepo{db: s.db}
}

// SessionCache returns the durable session snapshot cache.
func (s *Store) SessionCache() *CacheRepo {
	return &CacheRepo{db: s.db}
}

// applyPragmas configures SQLite for single-user client workloads.
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

// migrate creates the schema. All statements are idempotent.
func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS definitions (
			collection    TEXT NOT NULL,
			subject_id    TEXT NOT NULL,
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			variant       TEXT NOT NULL,
			passage       TEXT NOT NULL DEFAULT '',
			passage_secs  INTEGER NOT NULL DEFAULT 0,
			scoring_mode  TEXT NOT NULL,
			rated         INTEGER NOT NULL DEFAULT 0,
			sample_size   INTEGER NOT NULL DEFAULT 0,
			duration_secs INTEGER NOT NULL,
			questions     TEXT NOT NULL,
			PRIMARY KEY (collection, subject_id)
		)`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id           TEXT PRIMARY KEY,
			session_id   TEXT NOT NULL,
			user_id      TEXT NOT NULL,
			collection   TEXT NOT NULL,
			subject_id   TEXT NOT NULL,
			attempt      INTEGER NOT NULL,
			score        REAL NOT NULL,
			label        TEXT NOT NULL DEFAULT '',
			correct      INTEGER NOT NULL,
			total        INTEGER NOT NULL,
			answers      TEXT NOT NULL,
			submitted_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_scope
			ON attempts (user_id, collection, subject_id)`,
		`CREATE TABLE IF NOT EXISTS session_cache (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. DEVPATH_DB environment variable
// 2. $XDG_DATA_HOME/devpath/devpath.db
// 3. ~/.local/share/devpath/devpath.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("DEVPATH_DB"); p != "" {
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

	p := filepath.Join(dataHome, "devpath", "devpath.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
