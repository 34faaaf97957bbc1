// Package sink emits the extracted knowledge graph to downstream stores.
// Turtle serialization is the canonical format; Fuseki and Neo4j sinks
// push the same records over the wire.
package sink

import "context"

// TripleRecord is one knowledge triple with its provenance, ready for
// export.
type TripleRecord struct {
	Subject         string
	Predicate       string
	Object          string
	SourceMessageID string
	SessionID       string
}

// LinkRecord maps a corpus entity label to an external identifier.
type LinkRecord struct {
	Label        string
	ExternalID   string // Wikidata QID
	Confidence   float64
	MatchedLabel string
	Description  string
}

// EquivalenceRecord declares two labels the same entity via a shared
// external identifier.
type EquivalenceRecord struct {
	A          string
	B          string
	ExternalID string
}

// Export bundles everything a sink receives in one push.
type Export struct {
	Triples      []TripleRecord
	Links        []LinkRecord
	Equivalences []EquivalenceRecord
}

// GraphSink receives graph exports.
type GraphSink interface {
	// Emit pushes an export downstream. Implementations must be
	// idempotent: re-emitting the same records is safe.
	Emit(ctx context.Context, export Export) error
	// Name identifies the sink for logging.
	Name() string
}
