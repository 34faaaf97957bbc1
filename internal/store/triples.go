package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/devkg/devkg/internal/extract"
)

// StoredTriple is one corpus triple with its provenance.
type StoredTriple struct {
	Subject   string
	Predicate string
	Object    string
	MessageID string
	SessionID string
}

// EntityCandidate is an entity label selected for linking, with the
// cross-session evidence backing the selection.
type EntityCandidate struct {
	Label        string
	SessionCount int
	Contexts     []extract.Triple
}

// RecordTriples appends validated triples to the corpus. Re-recording the
// same message is a no-op thanks to the identity index.
func (s *Store) RecordTriples(ctx context.Context, messageID, sessionID string, triples []extract.Triple) error {
	if len(triples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning triple insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO triples (subject, predicate, object, message_id, session_id)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing triple insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range triples {
		if _, err := stmt.ExecContext(ctx, t.Subject, t.Predicate, t.Object, messageID, sessionID); err != nil {
			return fmt.Errorf("inserting triple (%s, %s, %s): %w", t.Subject, t.Predicate, t.Object, err)
		}
	}

	return tx.Commit()
}

// AllTriples returns the full corpus ordered by insertion.
func (s *Store) AllTriples(ctx context.Context) ([]StoredTriple, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT subject, predicate, object, message_id, session_id FROM triples ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying triples: %w", err)
	}
	defer rows.Close()

	var out []StoredTriple
	for rows.Next() {
		var t StoredTriple
		if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object, &t.MessageID, &t.SessionID); err != nil {
			return nil, fmt.Errorf("scanning triple: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SearchTriples returns triples whose subject, predicate, or object
// contains the query substring, case-insensitive.
func (s *Store) SearchTriples(ctx context.Context, query string, limit int) ([]StoredTriple, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, predicate, object, message_id, session_id FROM triples
		WHERE subject LIKE ? OR object LIKE ? OR predicate LIKE ?
		ORDER BY id DESC LIMIT ?`,
		pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching triples: %w", err)
	}
	defer rows.Close()

	var out []StoredTriple
	for rows.Next() {
		var t StoredTriple
		if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object, &t.MessageID, &t.SessionID); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SelectLinkCandidates aggregates distinct-session counts per entity label
// and returns the labels appearing in at least minSessions distinct
// sessions, ordered by session count descending. normalize (usually the
// alias table) is applied before aggregation so an abbreviation and its
// expansion count as one entity; pass nil for identity.
//
// The threshold works on session counts, not mention counts: an entity
// mentioned 50 times in one session still loses to one mentioned twice
// across two sessions.
func (s *Store) SelectLinkCandidates(ctx context.Context, normalize func(string) string, minSessions, limit int) ([]EntityCandidate, error) {
	if normalize == nil {
		normalize = func(s string) string { return s }
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT subject AS label, session_id FROM triples
		UNION
		SELECT object AS label, session_id FROM triples`)
	if err != nil {
		return nil, fmt.Errorf("querying entity sessions: %w", err)
	}
	defer rows.Close()

	sessions := map[string]map[string]bool{}
	for rows.Next() {
		var label, session string
		if err := rows.Scan(&label, &session); err != nil {
			return nil, fmt.Errorf("scanning entity session: %w", err)
		}
		label = normalize(label)
		if sessions[label] == nil {
			sessions[label] = map[string]bool{}
		}
		sessions[label][session] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var candidates []EntityCandidate
	for label, ss := range sessions {
		if len(ss) < minSessions {
			continue
		}
		candidates = append(candidates, EntityCandidate{Label: label, SessionCount: len(ss)})
	}

	// Highest session count first; ties broken alphabetically for
	// deterministic output.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SessionCount != candidates[j].SessionCount {
			return candidates[i].SessionCount > candidates[j].SessionCount
		}
		return candidates[i].Label < candidates[j].Label
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	for i := range candidates {
		contexts, err := s.ContextTriples(ctx, candidates[i].Label, normalize, 5)
		if err != nil {
			return nil, err
		}
		candidates[i].Contexts = contexts
	}

	return candidates, nil
}

// ContextTriples returns up to limit corpus triples mentioning the given
// (normalized) label, used as disambiguation context.
func (s *Store) ContextTriples(ctx context.Context, label string, normalize func(string) string, limit int) ([]extract.Triple, error) {
	if normalize == nil {
		normalize = func(s string) string { return s }
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT subject, predicate, object FROM triples ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("querying context triples: %w", err)
	}
	defer rows.Close()

	var out []extract.Triple
	for rows.Next() {
		var t extract.Triple
		if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object); err != nil {
			return nil, fmt.Errorf("scanning context triple: %w", err)
		}
		if normalize(t.Subject) != label && normalize(t.Object) != label {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}
