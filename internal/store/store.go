// Package store provides the SQLite storage layer for devkg.
//
// All pipeline state lives in a single SQLite database file, including:
// - The triple extraction cache (message identity -> extracted triples)
// - The accumulated triple corpus with session provenance
// - The Wikidata link cache (label + context -> QID, confidence)
// - Processing watermarks for transcripts and individual messages
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.devkg/devkg.db"

// Config holds configuration for NewStore.
type Config struct {
	DBPath string
}

// Store is the SQLite-backed pipeline store.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the devkg database.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = ExpandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// WipeExtractionCache deletes all cached extractions and message watermarks.
// The triple corpus itself is preserved.
func (s *Store) WipeExtractionCache(ctx context.Context) error {
	for _, table := range []string{"triple_cache", "message_watermarks", "file_watermarks"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wiping %s: %w", table, err)
		}
	}
	return nil
}

// WipeLinkCache deletes all cached Wikidata lookups, forcing re-resolution
// on the next link run.
func (s *Store) WipeLinkCache(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM link_cache"); err != nil {
		return fmt.Errorf("wiping link_cache: %w", err)
	}
	return nil
}

// ExpandPath expands a leading ~ to the home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
