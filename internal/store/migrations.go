package store

import (
	"database/sql"
	"fmt"
)

// migrate creates all tables if they don't exist.
func (s *Store) migrate() error {
	bootstrapDone, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}

	if !bootstrapDone {
		if err := s.runBootstrapDDL(); err != nil {
			return err
		}
		if err := s.setMetaFlag("schema_bootstrap_complete"); err != nil {
			return fmt.Errorf("marking bootstrap complete: %w", err)
		}
	}

	return nil
}

func (s *Store) runBootstrapDDL() error {
	statements := []string{
		// Schema metadata / feature flags
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Triple extraction cache. A row with triples_json = '[]' is the
		// explicit processed-empty marker; absence of a row means the
		// message was never attempted. text_hash detects content drift.
		`CREATE TABLE IF NOT EXISTS triple_cache (
			message_id   TEXT PRIMARY KEY,
			text_hash    TEXT NOT NULL,
			triples_json TEXT NOT NULL,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Accumulated triple corpus with provenance. The unique index makes
		// corpus writes idempotent under re-runs of the same message.
		`CREATE TABLE IF NOT EXISTS triples (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			subject    TEXT NOT NULL,
			predicate  TEXT NOT NULL,
			object     TEXT NOT NULL,
			message_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_triples_identity
			ON triples(subject, predicate, object, message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_triples_subject ON triples(subject)`,
		`CREATE INDEX IF NOT EXISTS idx_triples_object ON triples(object)`,
		`CREATE INDEX IF NOT EXISTS idx_triples_session ON triples(session_id)`,

		// Wikidata link cache. qid NULL = searched, nothing found (negative
		// cache). Sub-threshold confidences are retained; the threshold is
		// applied by readers, never at write time.
		`CREATE TABLE IF NOT EXISTS link_cache (
			label         TEXT NOT NULL,
			context_hash  TEXT NOT NULL,
			qid           TEXT,
			matched_label TEXT,
			description   TEXT,
			confidence    REAL NOT NULL DEFAULT 0,
			reasoning     TEXT,
			last_queried  DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (label, context_hash)
		)`,

		// Realtime watermark: last processed assistant message per session.
		`CREATE TABLE IF NOT EXISTS message_watermarks (
			session_id   TEXT PRIMARY KEY,
			message_hash TEXT NOT NULL,
			updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Backfill watermark: content hash per processed transcript file.
		`CREATE TABLE IF NOT EXISTS file_watermarks (
			path         TEXT PRIMARY KEY,
			file_hash    TEXT NOT NULL,
			processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning bootstrap transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) isMetaFlagEnabled(key string) (bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		// First run: meta table doesn't exist yet.
		return false, nil
	}
	return value == "1", nil
}

func (s *Store) setMetaFlag(key string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, '1')", key)
	return err
}
