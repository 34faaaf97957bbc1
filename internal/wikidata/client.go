// Package wikidata wraps the Wikidata wbsearchentities API used by the
// disambiguation agent. The client is polite by default: descriptive
// User-Agent, per-request timeout, inter-request delay, and a cool-off on
// 403/429 responses. Responses are memoized in-process so repeated labels
// within one run never hit the wire twice.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultBaseURL is the Wikidata API endpoint.
const DefaultBaseURL = "https://www.wikidata.org/w/api.php"

const defaultUserAgent = "devkg-linker/1.0 (https://github.com/devkg/devkg)"

// Candidate is one wbsearchentities result.
type Candidate struct {
	ID          string   // opaque QID, e.g. "Q28865"
	Label       string
	Description string
	Aliases     []string
}

// Config holds client configuration. Zero values select the defaults.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration // per-request; default 10s
	Delay     time.Duration // minimum gap between requests; default 1s
	Limit     int           // max candidates per search; default 5
	MemoTTL   time.Duration // in-process memoization window; default 15m
}

// Client queries Wikidata.
type Client struct {
	cfg  Config
	http *http.Client
	memo *gocache.Cache

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient builds a Client, filling in defaults for unset config fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Delay == 0 {
		cfg.Delay = time.Second
	}
	if cfg.Limit == 0 {
		cfg.Limit = 5
	}
	if cfg.MemoTTL == 0 {
		cfg.MemoTTL = 15 * time.Minute
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		memo: gocache.New(cfg.MemoTTL, cfg.MemoTTL),
	}
}

type searchResponse struct {
	Search []struct {
		ID          string   `json:"id"`
		Label       string   `json:"label"`
		Description string   `json:"description"`
		Aliases     []string `json:"aliases"`
	} `json:"search"`
}

// Search runs a wbsearchentities query and returns the ranked candidates.
// Results are memoized per lowercased query for the client's TTL.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	memoKey := strings.ToLower(query)
	if cached, ok := c.memo.Get(memoKey); ok {
		return cached.([]Candidate), nil
	}

	c.throttle()

	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", query)
	params.Set("language", "en")
	params.Set("format", "json")
	params.Set("limit", fmt.Sprintf("%d", c.cfg.Limit))
	params.Set("type", "item")

	req, err := http.NewRequestWithContext(ctx, "GET", c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building wikidata request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikidata search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		// Back off hard before the next request goes out.
		c.coolOff(5 * time.Second)
		return nil, fmt.Errorf("wikidata search %q: rate limited (HTTP %d)", query, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("wikidata search %q: HTTP %d: %s", query, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding wikidata response for %q: %w", query, err)
	}

	candidates := make([]Candidate, 0, len(parsed.Search))
	for _, item := range parsed.Search {
		candidates = append(candidates, Candidate{
			ID:          item.ID,
			Label:       item.Label,
			Description: item.Description,
			Aliases:     item.Aliases,
		})
	}

	c.memo.Set(memoKey, candidates, gocache.DefaultExpiration)
	return candidates, nil
}

// throttle enforces the minimum inter-request delay.
func (c *Client) throttle() {
	c.mu.Lock()
	wait := c.cfg.Delay - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// coolOff pushes the next allowed request time out by d.
func (c *Client) coolOff(d time.Duration) {
	c.mu.Lock()
	c.lastCall = time.Now().Add(d)
	c.mu.Unlock()
}
