// Package pipeline wires ingestion, extraction, linking, and export into
// the two entry points the CLI exposes: the realtime per-turn path and the
// whole-corpus backfill.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/devkg/devkg/internal/alias"
	"github.com/devkg/devkg/internal/extract"
	"github.com/devkg/devkg/internal/ingest"
	"github.com/devkg/devkg/internal/linker"
	"github.com/devkg/devkg/internal/logging"
	"github.com/devkg/devkg/internal/sink"
	"github.com/devkg/devkg/internal/store"
)

// Config tunes pipeline behavior.
type Config struct {
	// MinRealtimeChars guards the realtime path: assistant turns shorter
	// than this are acknowledgments, not knowledge. Default 100.
	MinRealtimeChars int
	// ConfidenceThreshold gates which cached links reach exports.
	// Default 0.7.
	ConfidenceThreshold float64
}

// Pipeline owns the shared dependencies of all runs.
type Pipeline struct {
	store     *store.Store
	extractor *extract.Extractor
	aliases   *alias.Table
	sinks     []sink.GraphSink
	cfg       Config
}

// New builds a Pipeline. sinks may be empty (store-only operation);
// aliases may be nil.
func New(st *store.Store, extractor *extract.Extractor, aliases *alias.Table, sinks []sink.GraphSink, cfg Config) *Pipeline {
	if cfg.MinRealtimeChars <= 0 {
		cfg.MinRealtimeChars = 100
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	return &Pipeline{store: st, extractor: extractor, aliases: aliases, sinks: sinks, cfg: cfg}
}

// ProcessReport summarizes one realtime run.
type ProcessReport struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id,omitempty"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
	CacheHit  bool   `json:"cache_hit"`
	Degraded  bool   `json:"degraded"`
	Triples   int    `json:"triples"`
	Emitted   int    `json:"emitted"` // sinks that received the export
}

// ProcessTranscript runs the realtime path for one transcript: extract the
// last assistant message, record its triples, and push to sinks. The
// message watermark makes repeated hook fires for the same turn no-ops.
func (p *Pipeline) ProcessTranscript(ctx context.Context, sessionID, path string) (ProcessReport, error) {
	report := ProcessReport{RunID: uuid.NewString(), SessionID: sessionID}

	msg, ok, err := ingest.LastAssistantText(path)
	if err != nil {
		return report, fmt.Errorf("reading transcript: %w", err)
	}
	if !ok {
		report.Skipped = true
		report.Reason = "no assistant message"
		return report, nil
	}
	if report.SessionID == "" {
		report.SessionID = msg.SessionID
	}
	report.MessageID = msg.ID

	if len(msg.Text) < p.cfg.MinRealtimeChars {
		report.Skipped = true
		report.Reason = "message below realtime minimum"
		return report, nil
	}

	msgHash := extract.HashText(msg.Text)
	done, err := p.store.MessageProcessed(ctx, report.SessionID, msgHash)
	if err != nil {
		return report, err
	}
	if done {
		report.Skipped = true
		report.Reason = "already processed"
		return report, nil
	}

	res, err := p.extractor.Extract(ctx, msg.ID, msg.Text)
	if err != nil {
		return report, err
	}
	report.CacheHit = res.CacheHit
	report.Degraded = res.Degraded
	report.Triples = len(res.Triples)

	if len(res.Triples) > 0 {
		if err := p.store.RecordTriples(ctx, msg.ID, report.SessionID, res.Triples); err != nil {
			return report, err
		}
		report.Emitted = p.emit(ctx, p.exportFor(res.Triples, msg.ID, report.SessionID))
	}

	if err := p.store.MarkMessageProcessed(ctx, report.SessionID, msgHash); err != nil {
		return report, err
	}

	logging.Info("pipeline", "session=%s triples=%d cache_hit=%v", report.SessionID, report.Triples, report.CacheHit)
	return report, nil
}

// exportFor builds an incremental export for freshly extracted triples,
// attaching any already-accepted links for the entities involved.
func (p *Pipeline) exportFor(triples []extract.Triple, messageID, sessionID string) sink.Export {
	export := sink.Export{}
	for _, t := range triples {
		export.Triples = append(export.Triples, sink.TripleRecord{
			Subject:         t.Subject,
			Predicate:       t.Predicate,
			Object:          t.Object,
			SourceMessageID: messageID,
			SessionID:       sessionID,
		})
	}
	return export
}

func (p *Pipeline) emit(ctx context.Context, export sink.Export) int {
	emitted := 0
	for _, s := range p.sinks {
		if err := s.Emit(ctx, export); err != nil {
			// Sinks are best-effort on the realtime path: the store is
			// the source of truth and a full export can catch up later.
			logging.Warn("pipeline", "sink %s: %v", s.Name(), err)
			continue
		}
		emitted++
	}
	return emitted
}

// BuildExport assembles the full-corpus export: every stored triple, the
// accepted links, and the equivalences they imply.
func (p *Pipeline) BuildExport(ctx context.Context) (sink.Export, error) {
	triples, err := p.store.AllTriples(ctx)
	if err != nil {
		return sink.Export{}, err
	}
	links, err := p.store.AcceptedLinks(ctx, p.cfg.ConfidenceThreshold)
	if err != nil {
		return sink.Export{}, err
	}

	export := sink.Export{}
	for _, t := range triples {
		export.Triples = append(export.Triples, sink.TripleRecord{
			Subject:         t.Subject,
			Predicate:       t.Predicate,
			Object:          t.Object,
			SourceMessageID: t.MessageID,
			SessionID:       t.SessionID,
		})
	}
	for _, l := range links {
		export.Links = append(export.Links, sink.LinkRecord{
			Label:        l.Label,
			ExternalID:   l.QID,
			Confidence:   l.Confidence,
			MatchedLabel: l.MatchedLabel,
			Description:  l.Description,
		})
	}
	for _, eq := range linker.Equivalences(links) {
		export.Equivalences = append(export.Equivalences, sink.EquivalenceRecord{
			A: eq.A, B: eq.B, ExternalID: eq.QID,
		})
	}
	return export, nil
}
