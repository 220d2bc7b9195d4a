// Package sqlite persists cluster analysis runs: run metadata, per-point
// labels and per-cluster mean orientations. Schema changes go through
// golang-migrate; see the migrations directory at the repository root.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection used by the run store.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the sqlite database at path. Use
// ":memory:" for throwaway databases in tests.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &DB{db}, nil
}
