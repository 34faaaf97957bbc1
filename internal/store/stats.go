package store

import (
	"context"
	"fmt"
	"sort"
)

// PredicateCount is one row of the predicate histogram.
type PredicateCount struct {
	Predicate string
	Count     int
}

// Stats holds corpus and cache observability counters.
type Stats struct {
	CachedMessages  int
	TripleCount     int
	EntityCount     int
	SessionCount    int
	Predicates      []PredicateCount
	LinksResolved   int // qid present, any confidence
	LinksAccepted   int // qid present, confidence >= threshold
	LinksNoMatch    int // negative-cache rows
	ProcessedFiles  int
	MultiSessionEnt int // entities in >= 2 sessions
}

// Stats computes corpus statistics. threshold is the link acceptance
// confidence used to split resolved links into accepted vs low-confidence.
func (s *Store) Stats(ctx context.Context, threshold float64) (*Stats, error) {
	st := &Stats{}

	scalars := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM triple_cache", &st.CachedMessages},
		{"SELECT COUNT(*) FROM triples", &st.TripleCount},
		{"SELECT COUNT(DISTINCT session_id) FROM triples", &st.SessionCount},
		{"SELECT COUNT(*) FROM file_watermarks", &st.ProcessedFiles},
		{"SELECT COUNT(*) FROM link_cache WHERE qid IS NOT NULL", &st.LinksResolved},
		{"SELECT COUNT(*) FROM link_cache WHERE qid IS NULL", &st.LinksNoMatch},
	}
	for _, q := range scalars {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("stats query %q: %w", q.query, err)
		}
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM link_cache WHERE qid IS NOT NULL AND confidence >= ?",
		threshold).Scan(&st.LinksAccepted); err != nil {
		return nil, fmt.Errorf("stats accepted links: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT label FROM (
				SELECT subject AS label, session_id FROM triples
				UNION
				SELECT object AS label, session_id FROM triples
			) GROUP BY label
		)`).Scan(&st.EntityCount); err != nil {
		return nil, fmt.Errorf("stats entity count: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT label FROM (
				SELECT subject AS label, session_id FROM triples
				UNION
				SELECT object AS label, session_id FROM triples
			) GROUP BY label HAVING COUNT(DISTINCT session_id) >= 2
		)`).Scan(&st.MultiSessionEnt); err != nil {
		return nil, fmt.Errorf("stats multi-session entities: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT predicate, COUNT(*) FROM triples GROUP BY predicate")
	if err != nil {
		return nil, fmt.Errorf("stats predicate histogram: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pc PredicateCount
		if err := rows.Scan(&pc.Predicate, &pc.Count); err != nil {
			return nil, fmt.Errorf("scanning predicate count: %w", err)
		}
		st.Predicates = append(st.Predicates, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(st.Predicates, func(i, j int) bool {
		if st.Predicates[i].Count != st.Predicates[j].Count {
			return st.Predicates[i].Count > st.Predicates[j].Count
		}
		return st.Predicates[i].Predicate < st.Predicates[j].Predicate
	})

	return st, nil
}
