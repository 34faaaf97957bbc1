package sink

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jConfig locates a Neo4j (or Bolt-compatible) server.
type Neo4jConfig struct {
	URI      string // e.g. bolt://localhost:7687
	Username string
	Password string
	Database string // empty = server default
}

// Neo4jSink mirrors the knowledge graph into a property graph: Entity
// nodes, predicate-typed RELATES edges, and SAME_AS edges for links and
// equivalences. All writes are MERGE-based, so re-emitting is a no-op.
type Neo4jSink struct {
	driver neo4j.DriverWithContext
	cfg    Neo4jConfig
}

// NewNeo4jSink connects and verifies connectivity.
func NewNeo4jSink(ctx context.Context, cfg Neo4jConfig) (*Neo4jSink, error) {
	if cfg.URI == "" {
		cfg.URI = "bolt://localhost:7687"
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j unreachable at %s: %w", cfg.URI, err)
	}
	return &Neo4jSink{driver: driver, cfg: cfg}, nil
}

func (s *Neo4jSink) Name() string {
	return "neo4j/" + s.cfg.URI
}

// Close releases the driver.
func (s *Neo4jSink) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jSink) Emit(ctx context.Context, export Export) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.cfg.Database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, t := range export.Triples {
			_, err := tx.Run(ctx, `
				MERGE (s:Entity {label: $subject})
				MERGE (o:Entity {label: $object})
				MERGE (s)-[r:RELATES {predicate: $predicate, messageId: $messageId}]->(o)
				SET r.sessionId = $sessionId`,
				map[string]any{
					"subject":   t.Subject,
					"object":    t.Object,
					"predicate": t.Predicate,
					"messageId": t.SourceMessageID,
					"sessionId": t.SessionID,
				})
			if err != nil {
				return nil, fmt.Errorf("merging triple (%s, %s, %s): %w", t.Subject, t.Predicate, t.Object, err)
			}
		}

		for _, l := range export.Links {
			_, err := tx.Run(ctx, `
				MERGE (e:Entity {label: $label})
				MERGE (w:WikidataItem {qid: $qid})
				SET w.label = $matchedLabel, w.description = $description
				MERGE (e)-[r:SAME_AS]->(w)
				SET r.confidence = $confidence`,
				map[string]any{
					"label":        l.Label,
					"qid":          l.ExternalID,
					"matchedLabel": l.MatchedLabel,
					"description":  l.Description,
					"confidence":   l.Confidence,
				})
			if err != nil {
				return nil, fmt.Errorf("merging link %s -> %s: %w", l.Label, l.ExternalID, err)
			}
		}

		for _, eq := range export.Equivalences {
			_, err := tx.Run(ctx, `
				MERGE (a:Entity {label: $a})
				MERGE (b:Entity {label: $b})
				MERGE (a)-[r:SAME_AS]->(b)
				SET r.qid = $qid`,
				map[string]any{"a": eq.A, "b": eq.B, "qid": eq.ExternalID})
			if err != nil {
				return nil, fmt.Errorf("merging equivalence %s = %s: %w", eq.A, eq.B, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j write: %w", err)
	}
	return nil
}
