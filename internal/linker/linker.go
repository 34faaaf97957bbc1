package linker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/devkg/devkg/internal/alias"
	"github.com/devkg/devkg/internal/extract"
	"github.com/devkg/devkg/internal/store"
)

// RunConfig tunes a linking run over the corpus.
type RunConfig struct {
	MinSessions         int     // distinct-session floor for candidates; default 2
	Limit               int     // max candidates per run; 0 = unlimited
	Workers             int     // concurrent agents; default 4
	ConfidenceThreshold float64 // acceptance floor; default 0.7
	DryRun              bool    // select and report, but never search or cache
}

// Report summarizes one linking run.
type Report struct {
	Candidates    int // labels meeting the session threshold
	Filtered      int // rejected by the link-time validity filter
	CacheHits     int // resolutions served from the link cache
	Linked        int // accepted matches at or above the threshold
	LowConfidence int // matches below the threshold (cached, not emitted)
	NoMatch       int // definitive no-match outcomes
	Errors        int // attempts that produced no cacheable outcome
	Links         []store.LinkEntry
	Equivalences  []Equivalence
}

// Runner drives candidate selection, cache-first resolution, and
// deduplication for a whole corpus.
type Runner struct {
	store   *store.Store
	agent   *Agent
	aliases *alias.Table
	cfg     RunConfig
}

// NewRunner builds a Runner. aliases may be nil (no normalization).
func NewRunner(st *store.Store, agent *Agent, aliases *alias.Table, cfg RunConfig) *Runner {
	if cfg.MinSessions <= 0 {
		cfg.MinSessions = 2
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	return &Runner{store: st, agent: agent, aliases: aliases, cfg: cfg}
}

func (r *Runner) normalize(label string) string {
	if r.aliases == nil {
		return extract.NormalizeEntity(label)
	}
	return r.aliases.Apply(label)
}

// Run selects link candidates by session frequency, resolves each through
// the cache or the agent, and derives equivalences from the accepted links.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	candidates, err := r.store.SelectLinkCandidates(ctx, r.normalize, r.cfg.MinSessions, r.cfg.Limit)
	if err != nil {
		return Report{}, fmt.Errorf("selecting link candidates: %w", err)
	}

	report := Report{Candidates: len(candidates)}

	// The extraction-time filter already ran; this stricter second pass
	// drops labels that are storable but not worth a Wikidata lookup.
	linkable := candidates[:0]
	for _, c := range candidates {
		if !extract.IsLinkableEntity(c.Label) {
			report.Filtered++
			continue
		}
		linkable = append(linkable, c)
	}

	if r.cfg.DryRun {
		for _, c := range linkable {
			report.Links = append(report.Links, store.LinkEntry{Label: c.Label})
		}
		return report, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.cfg.Workers)
	)

	for _, candidate := range linkable {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c store.EntityCandidate) {
			defer wg.Done()
			defer func() { <-sem }()

			entry, outcome := r.resolve(ctx, c)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeCacheHit:
				report.CacheHits++
			case outcomeError:
				report.Errors++
				return
			}
			switch {
			case entry.Matched() && entry.Confidence >= r.cfg.ConfidenceThreshold:
				report.Linked++
				report.Links = append(report.Links, entry)
			case entry.Matched():
				report.LowConfidence++
			default:
				report.NoMatch++
			}
		}(candidate)
	}
	wg.Wait()

	sort.Slice(report.Links, func(i, j int) bool {
		return report.Links[i].Label < report.Links[j].Label
	})
	report.Equivalences = Equivalences(report.Links)
	return report, ctx.Err()
}

type resolveOutcome int

const (
	outcomeResolved resolveOutcome = iota
	outcomeCacheHit
	outcomeError
)

// resolve returns the link entry for one candidate, consulting the cache
// before spending agent calls. Every definitive agent outcome is written
// back, no-match included.
func (r *Runner) resolve(ctx context.Context, c store.EntityCandidate) (store.LinkEntry, resolveOutcome) {
	contextParts := make([]string, 0, len(c.Contexts))
	for _, t := range c.Contexts {
		contextParts = append(contextParts, t.Subject+" "+t.Predicate+" "+t.Object)
	}
	contextHash := store.ContextFingerprint(contextParts)

	cached, found, err := r.store.GetLink(ctx, c.Label, contextHash)
	if err == nil && found {
		return cached, outcomeCacheHit
	}
	if err != nil {
		return store.LinkEntry{}, outcomeError
	}

	match, err := r.agent.Link(ctx, c.Label, c.Contexts)
	if err != nil {
		// No evidence was gathered: leave the cache untouched so the
		// next run retries.
		return store.LinkEntry{}, outcomeError
	}

	entry := store.LinkEntry{
		Label:        c.Label,
		ContextHash:  contextHash,
		QID:          match.QID,
		MatchedLabel: match.MatchedLabel,
		Description:  match.Description,
		Confidence:   match.Confidence,
		Reasoning:    match.Reasoning,
	}
	if err := r.store.PutLink(ctx, entry); err != nil {
		return store.LinkEntry{}, outcomeError
	}
	return entry, outcomeResolved
}
