package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/devkg/devkg/internal/extract"
)

// TripleCache adapts the store to the extractor's cache contract.
func (s *Store) TripleCache() *TripleCache {
	return &TripleCache{s: s}
}

// TripleCache is the extraction-cache view of a Store.
type TripleCache struct {
	s *Store
}

func (c *TripleCache) Get(ctx context.Context, messageID, textHash string) ([]extract.Triple, bool, error) {
	return c.s.GetCachedTriples(ctx, messageID, textHash)
}

func (c *TripleCache) Put(ctx context.Context, messageID, textHash string, triples []extract.Triple) error {
	return c.s.PutCachedTriples(ctx, messageID, textHash, triples)
}

// GetCachedTriples looks up a cached extraction by message identity.
// Returns (triples, true) on a hit; a stored text hash that doesn't match
// textHash is treated as a miss so changed content is re-extracted rather
// than served stale. An empty (non-nil) slice is a valid hit: the message
// was processed and produced no triples.
func (s *Store) GetCachedTriples(ctx context.Context, messageID, textHash string) ([]extract.Triple, bool, error) {
	var storedHash, triplesJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT text_hash, triples_json FROM triple_cache WHERE message_id = ?",
		messageID).Scan(&storedHash, &triplesJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading triple cache: %w", err)
	}

	if storedHash != textHash {
		return nil, false, nil
	}

	triples := []extract.Triple{}
	if err := json.Unmarshal([]byte(triplesJSON), &triples); err != nil {
		// Corrupt row: treat as a miss and let fresh extraction overwrite it.
		return nil, false, nil
	}
	return triples, true, nil
}

// PutCachedTriples records an extraction result, including the explicit
// processed-empty case (triples == empty slice).
func (s *Store) PutCachedTriples(ctx context.Context, messageID, textHash string, triples []extract.Triple) error {
	if triples == nil {
		triples = []extract.Triple{}
	}
	data, err := json.Marshal(triples)
	if err != nil {
		return fmt.Errorf("encoding triples: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO triple_cache (message_id, text_hash, triples_json)
		 VALUES (?, ?, ?)`,
		messageID, textHash, string(data))
	if err != nil {
		return fmt.Errorf("writing triple cache: %w", err)
	}
	return nil
}
