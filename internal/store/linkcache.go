package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LinkEntry is one cached Wikidata resolution. QID == "" means the entity
// was searched and nothing matched (negative cache): the lookup is not
// repeated, but no link is emitted either.
type LinkEntry struct {
	Label        string
	ContextHash  string
	QID          string
	MatchedLabel string
	Description  string
	Confidence   float64
	Reasoning    string
	LastQueried  time.Time
}

// Matched reports whether the entry carries a resolved identifier
// (regardless of confidence).
func (e LinkEntry) Matched() bool {
	return e.QID != ""
}

// GetLink looks up a cached resolution for (label, contextHash).
func (s *Store) GetLink(ctx context.Context, label, contextHash string) (LinkEntry, bool, error) {
	entry := LinkEntry{Label: label, ContextHash: contextHash}

	var qid, matchedLabel, description, reasoning sql.NullString
	var lastQueried sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT qid, matched_label, description, confidence, reasoning, last_queried
		 FROM link_cache WHERE label = ? AND context_hash = ?`,
		label, contextHash).Scan(&qid, &matchedLabel, &description, &entry.Confidence, &reasoning, &lastQueried)
	if err == sql.ErrNoRows {
		return LinkEntry{}, false, nil
	}
	if err != nil {
		return LinkEntry{}, false, fmt.Errorf("reading link cache: %w", err)
	}

	entry.QID = qid.String
	entry.MatchedLabel = matchedLabel.String
	entry.Description = description.String
	entry.Reasoning = reasoning.String
	entry.LastQueried = lastQueried.Time
	return entry, true, nil
}

// PutLink records a resolution result, match or no-match alike.
func (s *Store) PutLink(ctx context.Context, entry LinkEntry) error {
	var qid any
	if entry.QID != "" {
		qid = entry.QID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO link_cache
		 (label, context_hash, qid, matched_label, description, confidence, reasoning, last_queried)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		entry.Label, entry.ContextHash, qid, entry.MatchedLabel,
		entry.Description, entry.Confidence, entry.Reasoning)
	if err != nil {
		return fmt.Errorf("writing link cache: %w", err)
	}
	return nil
}

// AcceptedLinks returns all cached resolutions meeting the confidence
// threshold, one per label (the highest-confidence context wins).
func (s *Store) AcceptedLinks(ctx context.Context, threshold float64) ([]LinkEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, context_hash, qid, matched_label, description, confidence, reasoning
		FROM link_cache
		WHERE qid IS NOT NULL AND confidence >= ?
		ORDER BY label, confidence DESC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying accepted links: %w", err)
	}
	defer rows.Close()

	var out []LinkEntry
	seen := map[string]bool{}
	for rows.Next() {
		var e LinkEntry
		var matchedLabel, description, reasoning sql.NullString
		if err := rows.Scan(&e.Label, &e.ContextHash, &e.QID, &matchedLabel, &description, &e.Confidence, &reasoning); err != nil {
			return nil, fmt.Errorf("scanning link entry: %w", err)
		}
		if seen[e.Label] {
			continue
		}
		seen[e.Label] = true
		e.MatchedLabel = matchedLabel.String
		e.Description = description.String
		e.Reasoning = reasoning.String
		out = append(out, e)
	}
	return out, rows.Err()
}
