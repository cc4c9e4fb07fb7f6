// Package store persists the detection cache and scan history in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the cache and history tables.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Open creates the database's parent directory, then runs NewStore followed
// by Migrate.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	s, err := NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Detection cache

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  family          TEXT NOT NULL,
  hash            TEXT NOT NULL,
  scanned_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tokens (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  line            INTEGER NOT NULL,
  compat_key      TEXT NOT NULL,
  kind            TEXT NOT NULL,
  detail          TEXT
);

-- Scan history

CREATE TABLE IF NOT EXISTS runs (
  id                INTEGER PRIMARY KEY,
  started_at        TIMESTAMP NOT NULL,
  root              TEXT NOT NULL,
  lock_generated_at TIMESTAMP,
  file_count        INTEGER NOT NULL DEFAULT 0,
  total             INTEGER NOT NULL DEFAULT 0,
  passed            INTEGER NOT NULL DEFAULT 0,
  warned            INTEGER NOT NULL DEFAULT 0,
  failed            INTEGER NOT NULL DEFAULT 0,
  blocking          BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS run_findings (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  file            TEXT NOT NULL,
  line            INTEGER NOT NULL,
  compat_key      TEXT NOT NULL,
  status          TEXT NOT NULL,
  outcome         TEXT NOT NULL,
  severity        TEXT NOT NULL,
  feature_id      TEXT,
  message         TEXT,
  allowlisted     BOOLEAN NOT NULL DEFAULT FALSE
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_tokens_file ON tokens(file_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_findings_run ON run_findings(run_id);
CREATE INDEX IF NOT EXISTS idx_run_findings_key ON run_findings(compat_key);
`
