// Package extract turns assistant message text into validated knowledge
// triples: one LLM call per message, a closed predicate vocabulary, entity
// validity filtering, and a write-through cache keyed on message identity
// plus content hash.
package extract

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/devkg/devkg/internal/llm"
)

// TripleCache is the persistence contract the extractor writes through.
// Get must distinguish "never attempted" (found=false) from "processed,
// zero triples" (found=true, empty slice).
type TripleCache interface {
	Get(ctx context.Context, messageID, textHash string) ([]Triple, bool, error)
	Put(ctx context.Context, messageID, textHash string, triples []Triple) error
}

// Config holds extractor tunables. Zero values select the defaults.
type Config struct {
	MaxRetries      int           // retries after the initial attempt; default 2
	MinMessageChars int           // shorter messages are skipped entirely; default 30
	RequestTimeout  time.Duration // per LLM call; default 60s
	RetryBackoff    time.Duration // base delay between attempts; default 1s
	Temperature     float64       // default 0.2
}

// DefaultConfig returns the production extraction settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      2,
		MinMessageChars: 30,
		RequestTimeout:  60 * time.Second,
		RetryBackoff:    time.Second,
		Temperature:     0.2,
	}
}

// inputCharCaps bounds the text sent to the model per attempt. Retries
// shorten the input because truncated JSON responses are almost always
// caused by long inputs exhausting the output token budget.
var inputCharCaps = []int{1500, 1000, 800}

// Result describes one extraction outcome.
type Result struct {
	Triples  []Triple
	CacheHit bool // served from cache; no LLM call was made
	Skipped  bool // below the minimum-length guard; nothing cached
	Retries  int  // LLM attempts beyond the first
	Degraded bool // all attempts failed to parse; empty result cached
}

// Extractor runs the per-message extraction pipeline.
type Extractor struct {
	provider llm.Provider
	cache    TripleCache
	cfg      Config
}

// NewExtractor builds an Extractor. cache may be nil (no caching; used by
// dry runs and tests).
func NewExtractor(provider llm.Provider, cache TripleCache, cfg Config) *Extractor {
	if cfg.MaxRetries == 0 && cfg.MinMessageChars == 0 && cfg.RequestTimeout == 0 {
		cfg = DefaultConfig()
	}
	if cfg.MinMessageChars <= 0 {
		cfg.MinMessageChars = 30
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	return &Extractor{provider: provider, cache: cache, cfg: cfg}
}

// HashText computes the short content hash (16 hex chars) used as the
// cache invalidation key alongside the message ID.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)[:16]
}

// Extract runs cache-checked triple extraction for one message. The
// returned error is reserved for storage failures; LLM and parse failures
// degrade to an empty result per the pipeline's failure policy.
func (e *Extractor) Extract(ctx context.Context, messageID, text string) (Result, error) {
	if len(text) < e.cfg.MinMessageChars {
		// Too short to contain extractable knowledge. Deliberately not
		// cached: a skip is not a processing outcome.
		return Result{Skipped: true}, nil
	}

	textHash := HashText(text)

	if e.cache != nil {
		cached, found, err := e.cache.Get(ctx, messageID, textHash)
		if err != nil {
			return Result{}, fmt.Errorf("extraction cache lookup: %w", err)
		}
		if found {
			return Result{Triples: cached, CacheHit: true}, nil
		}
	}

	res := Result{}
	var triples []Triple
	sawResponse := false

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			res.Retries++
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * e.cfg.RetryBackoff):
			}
		}

		charCap := inputCharCaps[len(inputCharCaps)-1]
		if attempt < len(inputCharCaps) {
			charCap = inputCharCaps[attempt]
		}
		input := truncateToRune(text, charCap)

		raw, err := e.complete(ctx, BuildExtractionPrompt(input))
		if err != nil {
			continue
		}
		sawResponse = true

		if parsed := parseTriplesResponse(raw); parsed != nil {
			triples = parsed
			break
		}
	}

	if triples == nil {
		// Unparseable after all retries (typically persistent truncation).
		// Expected for a small fraction of long messages; degrade to empty.
		triples = []Triple{}
		res.Degraded = true
	}

	if len(triples) > MaxTriplesPerMessage {
		triples = triples[:MaxTriplesPerMessage]
	}
	res.Triples = triples

	// Cache the outcome, including processed-empty — but only when the
	// model actually responded. A pure transport failure stays uncached so
	// the next run retries instead of inheriting a false empty.
	if e.cache != nil && sawResponse {
		if err := e.cache.Put(ctx, messageID, textHash, triples); err != nil {
			return Result{}, fmt.Errorf("extraction cache write: %w", err)
		}
	}

	return res, nil
}

// truncateToRune caps s at max bytes, backing off to the nearest rune
// boundary so the prompt stays valid UTF-8. Providers that marshal the
// prompt into protobuf reject strings with a split rune outright.
func truncateToRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	return e.provider.Complete(callCtx, prompt, llm.CompletionOpts{
		Temperature: e.cfg.Temperature,
		MaxTokens:   2048,
		Format:      "json",
	})
}
