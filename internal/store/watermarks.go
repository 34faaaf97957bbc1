package store

import (
	"context"
	"database/sql"
	"fmt"
)

// MessageProcessed reports whether the given message hash is the last one
// processed for the session. The realtime hook fires on every agent turn,
// often repeatedly for the same transcript; this check makes re-fires
// cheap no-ops.
func (s *Store) MessageProcessed(ctx context.Context, sessionID, messageHash string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		"SELECT message_hash FROM message_watermarks WHERE session_id = ?",
		sessionID).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading message watermark: %w", err)
	}
	return stored == messageHash, nil
}

// MarkMessageProcessed records the last processed message for a session.
// Called even when extraction produced zero triples: processed-empty is a
// terminal state, not an invitation to retry.
func (s *Store) MarkMessageProcessed(ctx context.Context, sessionID, messageHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO message_watermarks (session_id, message_hash, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)`,
		sessionID, messageHash)
	if err != nil {
		return fmt.Errorf("writing message watermark: %w", err)
	}
	return nil
}

// FileUnchanged reports whether a transcript file was already processed
// with the same content hash. A transcript that grew since the last
// backfill hashes differently and is reprocessed.
func (s *Store) FileUnchanged(ctx context.Context, path, fileHash string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		"SELECT file_hash FROM file_watermarks WHERE path = ?", path).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading file watermark: %w", err)
	}
	return stored == fileHash, nil
}

// MarkFileProcessed records a transcript file's content hash after a
// successful backfill pass.
func (s *Store) MarkFileProcessed(ctx context.Context, path, fileHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO file_watermarks (path, file_hash, processed_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)`,
		path, fileHash)
	if err != nil {
		return fmt.Errorf("writing file watermark: %w", err)
	}
	return nil
}
