// Package linker resolves frequently-mentioned entity labels to Wikidata
// QIDs. A bounded search-and-evaluate agent does the disambiguation; the
// runner fans candidates out over a worker pool and writes every outcome,
// match or not, into the link cache.
package linker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/devkg/devkg/internal/extract"
	"github.com/devkg/devkg/internal/llm"
	"github.com/devkg/devkg/internal/wikidata"
)

// SearchClient is the candidate-search dependency of the agent.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]wikidata.Candidate, error)
}

// AgentConfig bounds one disambiguation run. Zero values select defaults.
type AgentConfig struct {
	MaxSearchCalls int           // hard cap on Wikidata searches per entity; default 3
	RequestTimeout time.Duration // per LLM evaluation; default 30s
	Temperature    float64       // default 0.1
}

// Match is the outcome of disambiguating one label. A zero QID means the
// agent searched and found nothing acceptable.
type Match struct {
	Label        string
	QID          string
	MatchedLabel string
	Description  string
	Reasoning    string
	Confidence   float64
	SearchCalls  int
}

// Agent runs bounded search-and-evaluate disambiguation: search Wikidata,
// ask the model to judge the candidates against the entity's corpus
// context, optionally reformulate the query, and stop after at most
// MaxSearchCalls searches.
type Agent struct {
	provider llm.Provider
	search   SearchClient
	cfg      AgentConfig
}

// NewAgent builds an Agent.
func NewAgent(provider llm.Provider, search SearchClient, cfg AgentConfig) *Agent {
	if cfg.MaxSearchCalls <= 0 {
		cfg.MaxSearchCalls = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	return &Agent{provider: provider, search: search, cfg: cfg}
}

const evaluateSystemPrompt = `You are a Wikidata entity linking agent for a developer knowledge graph.
You receive a technical entity name, the knowledge-graph context it appeared in, and candidate Wikidata entries.

Rules:
- Prefer candidates whose description mentions software, programming, framework, database, protocol, library, tool, or technology.
- Pick the QID whose description best matches how the entity is used in its context.
- Only return a QID that appears in the candidate list. Never produce a QID from memory.
- If no candidate is a reasonable match, return qid "none". You may suggest one alternative search query via retry_query (e.g. "k8s" -> "kubernetes", "apis" -> "application programming interface", "js" -> "javascript"); leave it empty to give up.
- Confidence: 0.9-1.0 exact match, 0.7-0.8 good match, 0.5-0.6 weak match, below 0.5 return none.

Respond with JSON only:
{"qid": "Q... or none", "confidence": 0.0, "reasoning": "one sentence", "retry_query": ""}`

type evaluation struct {
	QID        string  `json:"qid"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	RetryQuery string  `json:"retry_query"`
}

// Link disambiguates one label against Wikidata. The context triples are
// the corpus evidence for the label. A nil error with an empty QID is a
// definitive no-match and should be cached; an error means the attempt
// produced no evidence at all and should not be.
func (a *Agent) Link(ctx context.Context, label string, contexts []extract.Triple) (Match, error) {
	match := Match{Label: label}
	query := label

	// Candidates accumulate across searches so a reformulated query can
	// still be judged against everything seen so far.
	seen := map[string]wikidata.Candidate{}
	var order []string
	var lastErr error

	for call := 0; call < a.cfg.MaxSearchCalls; call++ {
		candidates, err := a.search.Search(ctx, query)
		match.SearchCalls++
		if err != nil {
			lastErr = err
			break
		}
		for _, c := range candidates {
			if _, ok := seen[c.ID]; !ok {
				seen[c.ID] = c
				order = append(order, c.ID)
			}
		}

		if len(seen) == 0 {
			// Nothing to evaluate yet: reformulate mechanically by
			// asking the model with an empty candidate list is wasteful,
			// so only continue if the label itself might expand.
			if call+1 < a.cfg.MaxSearchCalls {
				next := reformulate(label, query)
				if next == "" {
					break
				}
				query = next
				continue
			}
			break
		}

		eval, err := a.evaluate(ctx, label, contexts, seen, order)
		if err != nil {
			lastErr = err
			break
		}

		qid := strings.TrimSpace(eval.QID)
		if qid != "" && !strings.EqualFold(qid, "none") {
			candidate, known := seen[qid]
			if !known {
				// Fabricated identifier: discard the answer entirely.
				match.Reasoning = fmt.Sprintf("model returned %s which was not among the search results", qid)
				return match, nil
			}
			match.QID = candidate.ID
			match.MatchedLabel = candidate.Label
			match.Description = candidate.Description
			match.Confidence = eval.Confidence
			match.Reasoning = eval.Reasoning
			return match, nil
		}

		match.Reasoning = eval.Reasoning
		next := strings.TrimSpace(eval.RetryQuery)
		if next == "" || strings.EqualFold(next, query) {
			break
		}
		query = next
	}

	if len(seen) == 0 && lastErr != nil {
		return Match{}, fmt.Errorf("linking %q: %w", label, lastErr)
	}
	if match.Reasoning == "" {
		match.Reasoning = "no acceptable candidate found"
	}
	return match, nil
}

func (a *Agent) evaluate(ctx context.Context, label string, contexts []extract.Triple, seen map[string]wikidata.Candidate, order []string) (evaluation, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Entity: %q\n", label)
	fmt.Fprintf(&sb, "Context: %s\n\nCandidates:\n", formatContext(contexts))
	for _, qid := range order {
		c := seen[qid]
		fmt.Fprintf(&sb, "  %s: %s - %s\n", c.ID, c.Label, c.Description)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	raw, err := a.provider.Complete(callCtx, sb.String(), llm.CompletionOpts{
		System:      evaluateSystemPrompt,
		Temperature: a.cfg.Temperature,
		MaxTokens:   512,
		Format:      "json",
	})
	if err != nil {
		return evaluation{}, fmt.Errorf("evaluating candidates for %q: %w", label, err)
	}

	var eval evaluation
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(raw, "```json"), "```"), "```"))
	if err := json.Unmarshal([]byte(raw), &eval); err != nil {
		return evaluation{}, fmt.Errorf("unparseable evaluation for %q: %w", label, err)
	}
	return eval, nil
}

// formatContext renders the candidate's corpus triples as disambiguation
// evidence for the prompt.
func formatContext(contexts []extract.Triple) string {
	if len(contexts) == 0 {
		return "(no context available)"
	}
	parts := make([]string, 0, len(contexts))
	for _, t := range contexts {
		parts = append(parts, fmt.Sprintf("%s %s %s", t.Subject, t.Predicate, t.Object))
	}
	return strings.Join(parts, "; ")
}

// knownExpansions covers abbreviations Wikidata's search often misses.
var knownExpansions = map[string]string{
	"k8s":  "kubernetes",
	"js":   "javascript",
	"ts":   "typescript",
	"apis": "application programming interface",
	"api":  "application programming interface",
	"db":   "database",
	"repo": "software repository",
}

// reformulate picks a fallback query when a search returned nothing.
// Returns "" when no useful variation remains.
func reformulate(label, lastQuery string) string {
	if exp, ok := knownExpansions[strings.ToLower(label)]; ok && !strings.EqualFold(exp, lastQuery) {
		return exp
	}
	withSuffix := label + " software"
	if !strings.EqualFold(withSuffix, lastQuery) {
		return withSuffix
	}
	return ""
}
