package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the corpus cache database created under the processed path.
const FileName = "corpus.db"

// Init opens (creating if needed) the corpus cache at dir/corpus.db.
// The dir parameter allows tests to use t.TempDir().
func Init(dir string) (*sql.DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create processed directory: %w", err)
	}

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(dir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS operators (
		  name     TEXT PRIMARY KEY,
		  position INTEGER NOT NULL,
		  category TEXT,
		  payload  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tutorials (
		  name     TEXT PRIMARY KEY,
		  position INTEGER NOT NULL,
		  payload  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS python_classes (
		  name     TEXT PRIMARY KEY,
		  position INTEGER NOT NULL,
		  parent   TEXT,
		  payload  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS aliases (
		  kind  TEXT NOT NULL,
		  alias TEXT NOT NULL,
		  name  TEXT NOT NULL,
		  PRIMARY KEY (kind, alias)
		);

		CREATE TABLE IF NOT EXISTS meta (
		  key   TEXT PRIMARY KEY,
		  value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_operators_position ON operators(position);
		CREATE INDEX IF NOT EXISTS idx_tutorials_position ON tutorials(position);
		CREATE INDEX IF NOT EXISTS idx_python_classes_position ON python_classes(position);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
