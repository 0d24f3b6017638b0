// Package db opens the SQLite database that holds accounts, sessions,
// credentials and the default gram and comment tables.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// PathEnv overrides the default database location.
const PathEnv = "GRAMMABLE_DB"

// DefaultPath returns $GRAMMABLE_DB, or ~/.grammable/grammable.db.
func DefaultPath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".grammable", "grammable.db"), nil
}

// Open opens (or creates) the database at path and brings its schema up
// to date.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, closeOnError(db, fmt.Errorf("pinging database: %w", err))
	}
	if err := migrate(db); err != nil {
		return nil, closeOnError(db, fmt.Errorf("running migrations: %w", err))
	}

	return db, nil
}

func closeOnError(db *sql.DB, err error) error {
	if cerr := db.Close(); cerr != nil {
		return errors.Join(err, fmt.Errorf("closing database: %w", cerr))
	}
	return err
}

// dsn builds the connection string. Pragmas go in the DSN so that every
// pooled connection gets them, not just the first one.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
}
