package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/devkg/devkg/internal/llm"
)

// fakeProvider returns scripted responses in order, then repeats the last.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	if idx < 0 {
		return "", fmt.Errorf("no scripted response")
	}
	return f.responses[idx], nil
}

func (f *fakeProvider) Name() string { return "fake" }

// memCache is an in-memory TripleCache for tests.
type memCache struct {
	entries map[string][]Triple
	hashes  map[string]string
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]Triple{}, hashes: map[string]string{}}
}

func (m *memCache) Get(ctx context.Context, messageID, textHash string) ([]Triple, bool, error) {
	if m.hashes[messageID] != textHash {
		return nil, false, nil
	}
	triples, ok := m.entries[messageID]
	return triples, ok, nil
}

func (m *memCache) Put(ctx context.Context, messageID, textHash string, triples []Triple) error {
	m.puts++
	m.entries[messageID] = triples
	m.hashes[messageID] = textHash
	return nil
}

func testConfig() Config {
	return Config{
		MaxRetries:      2,
		MinMessageChars: 30,
		RequestTimeout:  time.Second,
		RetryBackoff:    time.Millisecond,
		Temperature:     0.2,
	}
}

const grpcMessage = "We switched from REST to gRPC for the internal API because of lower latency."

func TestExtractHappyPath(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`[{"subject":"grpc","predicate":"alternativeTo","object":"rest"},
		  {"subject":"grpc","predicate":"enables","object":"lower latency"}]`,
	}}
	ex := NewExtractor(provider, newMemCache(), testConfig())

	res, err := ex.Extract(context.Background(), "msg-1", grpcMessage)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Triples) != 2 {
		t.Fatalf("got %d triples, want 2: %+v", len(res.Triples), res.Triples)
	}
	if res.Triples[0].Subject != "grpc" || res.Triples[0].Predicate != "alternativeTo" || res.Triples[0].Object != "rest" {
		t.Errorf("first triple: %+v", res.Triples[0])
	}
	for _, tr := range res.Triples {
		if !IsKnownPredicate(tr.Predicate) {
			t.Errorf("predicate %q outside closed vocabulary", tr.Predicate)
		}
	}
}

func TestExtractIdempotence(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`[{"subject":"grpc","predicate":"alternativeTo","object":"rest"}]`,
	}}
	ex := NewExtractor(provider, newMemCache(), testConfig())
	ctx := context.Background()

	first, err := ex.Extract(ctx, "msg-1", grpcMessage)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	if first.CacheHit {
		t.Error("first call must not be a cache hit")
	}

	second, err := ex.Extract(ctx, "msg-1", grpcMessage)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if !second.CacheHit {
		t.Error("second call with identical content must hit the cache")
	}
	if provider.calls != 1 {
		t.Errorf("second call performed %d LLM calls, want 0 extra", provider.calls-1)
	}
	if len(second.Triples) != len(first.Triples) {
		t.Errorf("cached result differs: %+v vs %+v", second.Triples, first.Triples)
	}
}

func TestExtractContentChangeInvalidates(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`[{"subject":"grpc","predicate":"alternativeTo","object":"rest"}]`,
	}}
	ex := NewExtractor(provider, newMemCache(), testConfig())
	ctx := context.Background()

	if _, err := ex.Extract(ctx, "msg-1", grpcMessage); err != nil {
		t.Fatal(err)
	}
	if _, err := ex.Extract(ctx, "msg-1", grpcMessage+" We also added streaming."); err != nil {
		t.Fatal(err)
	}
	if provider.calls != 2 {
		t.Errorf("changed content must re-extract; got %d LLM calls, want 2", provider.calls)
	}
}

func TestExtractShortMessageSkipped(t *testing.T) {
	provider := &fakeProvider{}
	cache := newMemCache()
	ex := NewExtractor(provider, cache, testConfig())

	res, err := ex.Extract(context.Background(), "msg-short", "ok")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Skipped {
		t.Error("2-char message must be skipped")
	}
	if provider.calls != 0 {
		t.Errorf("skip must not call the LLM; got %d calls", provider.calls)
	}
	if cache.puts != 0 {
		t.Error("skip must not write a cache entry")
	}
}

func TestExtractCapsAtTen(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < 15; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"subject":"tool%c","predicate":"uses","object":"lib%c"}`, 'a'+i, 'a'+i)
	}
	sb.WriteString("]")

	provider := &fakeProvider{responses: []string{sb.String()}}
	ex := NewExtractor(provider, newMemCache(), testConfig())

	res, err := ex.Extract(context.Background(), "msg-many", strings.Repeat("a verbose technical message. ", 10))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Triples) > MaxTriplesPerMessage {
		t.Errorf("got %d triples, cap is %d", len(res.Triples), MaxTriplesPerMessage)
	}
}

func TestExtractRetriesOnTruncation(t *testing.T) {
	truncated := `[{"subject":"neo4j","predicate":"isTypeOf","object":"graph database"},{"subject":"devkg","predi`
	complete := `[{"subject":"neo4j","predicate":"isTypeOf","object":"graph database"}]`

	provider := &fakeProvider{responses: []string{truncated, complete}}
	ex := NewExtractor(provider, newMemCache(), testConfig())

	longText := strings.Repeat("Neo4j is the graph database behind devkg. ", 60)
	res, err := ex.Extract(context.Background(), "msg-trunc", longText)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// First response is truncated but salvageable: the one complete triple
	// object is recovered without a retry.
	if provider.calls != 1 {
		t.Errorf("salvageable truncation should not retry; got %d calls", provider.calls)
	}
	if len(res.Triples) != 1 || res.Triples[0].Subject != "neo4j" {
		t.Errorf("salvaged triples: %+v", res.Triples)
	}
}

func TestExtractRetryShortensInput(t *testing.T) {
	garbage := `{{{{not json at all`
	complete := `[]`

	provider := &fakeProvider{responses: []string{garbage, complete}}
	ex := NewExtractor(provider, newMemCache(), testConfig())

	longText := strings.Repeat("x", 2000)
	res, err := ex.Extract(context.Background(), "msg-long", longText)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Retries != 1 {
		t.Errorf("Retries = %d, want 1", res.Retries)
	}
	if len(provider.prompts) != 2 {
		t.Fatalf("got %d prompts", len(provider.prompts))
	}
	if len(provider.prompts[1]) >= len(provider.prompts[0]) {
		t.Error("retry prompt should be shorter than the initial prompt")
	}
	if len(res.Triples) != 0 || res.Degraded {
		t.Errorf("expected clean empty result after retry: %+v", res)
	}
}

func TestExtractTruncationKeepsValidUTF8(t *testing.T) {
	provider := &fakeProvider{responses: []string{"garbage", "garbage", "garbage"}}
	ex := NewExtractor(provider, newMemCache(), testConfig())

	// Multibyte runes straddle every byte-level cap (1500, 1000, 800).
	text := strings.Repeat("a", 1499) + strings.Repeat("é", 50)
	if _, err := ex.Extract(context.Background(), "msg-utf8", text); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(provider.prompts) == 0 {
		t.Fatal("no prompts captured")
	}
	for i, prompt := range provider.prompts {
		if !utf8.ValidString(prompt) {
			t.Errorf("attempt %d: prompt sent to the LLM is not valid UTF-8 (rune split at the byte cap)", i)
		}
	}
}

func TestTruncateToRune(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"aé", 2, "a"},  // é is 2 bytes starting at index 1
		{"aé", 3, "aé"}, // boundary lands cleanly
		{"日本語", 4, "日"},  // 3-byte runes
	}
	for _, c := range cases {
		if got := truncateToRune(c.in, c.max); got != c.want {
			t.Errorf("truncateToRune(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}

func TestExtractDegradesToEmptyAndCaches(t *testing.T) {
	provider := &fakeProvider{responses: []string{"nonsense", "more nonsense", "still nonsense"}}
	cache := newMemCache()
	ex := NewExtractor(provider, cache, testConfig())

	res, err := ex.Extract(context.Background(), "msg-bad", grpcMessage)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Degraded || len(res.Triples) != 0 {
		t.Errorf("expected degraded empty result: %+v", res)
	}
	// Processed-empty is cached: a re-run must not re-spend LLM calls.
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}

	before := provider.calls
	res2, err := ex.Extract(context.Background(), "msg-bad", grpcMessage)
	if err != nil {
		t.Fatal(err)
	}
	if !res2.CacheHit || provider.calls != before {
		t.Error("degraded-empty result must be served from cache on re-run")
	}
}

func TestExtractTransportFailureNotCached(t *testing.T) {
	errBoom := fmt.Errorf("connection refused")
	provider := &fakeProvider{errs: []error{errBoom, errBoom, errBoom}}
	cache := newMemCache()
	ex := NewExtractor(provider, cache, testConfig())

	res, err := ex.Extract(context.Background(), "msg-down", grpcMessage)
	if err != nil {
		t.Fatalf("transport failure must not surface as an error: %v", err)
	}
	if len(res.Triples) != 0 {
		t.Errorf("expected empty result, got %+v", res.Triples)
	}
	if cache.puts != 0 {
		t.Error("a run with zero model responses must not poison the cache")
	}
}

func TestExtractFiltersInvalidEntities(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`[{"subject":"auth_helper.py","predicate":"uses","object":"python"},
		  {"subject":"neo4j","predicate":"isTypeOf","object":"graph database"},
		  {"subject":"docker","predicate":"uses","object":"--force"}]`,
	}}
	ex := NewExtractor(provider, newMemCache(), testConfig())

	res, err := ex.Extract(context.Background(), "msg-noise", grpcMessage)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Triples) != 1 || res.Triples[0].Subject != "neo4j" {
		t.Errorf("filter should keep only the clean triple: %+v", res.Triples)
	}
}

func TestHashText(t *testing.T) {
	if len(HashText("hello")) != 16 {
		t.Error("hash must be 16 hex chars")
	}
	if HashText("a") == HashText("b") {
		t.Error("distinct content must hash distinctly")
	}
}
