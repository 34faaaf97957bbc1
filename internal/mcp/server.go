// Package mcp exposes the knowledge graph over the Model Context Protocol
// so assistants can query their own accumulated knowledge: triple search,
// entity lookups, the predicate vocabulary, resolved links, and corpus
// statistics. All tools are read-only; writes happen through the pipeline.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/devkg/devkg/internal/extract"
	"github.com/devkg/devkg/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store               *store.Store
	Version             string
	ConfidenceThreshold float64 // link acceptance; default 0.7
}

// dbMu serializes MCP tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines, and SQLite
// supports only one writer at a time.
var dbMu sync.Mutex

// NewServer creates the MCP server with all graph tools registered.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}

	s := server.NewMCPServer(
		"DevKG",
		ver,
		server.WithToolCapabilities(false),
	)

	registerSearchTriplesTool(s, cfg.Store)
	registerGetEntityTool(s, cfg.Store, cfg.ConfidenceThreshold)
	registerListPredicatesTool(s)
	registerGetLinksTool(s, cfg.Store, cfg.ConfidenceThreshold)
	registerCorpusStatsTool(s, cfg.Store, cfg.ConfidenceThreshold)

	return s
}

func registerSearchTriplesTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("search_triples",
		mcp.WithDescription("Search knowledge triples by substring match on subject, predicate, or object. Returns triples with session provenance."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Substring to match against subject, predicate, or object"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20, max: 100)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		limit := 20
		if v, err := req.RequireFloat("limit"); err == nil && int(v) > 0 {
			limit = int(v)
			if limit > 100 {
				limit = 100
			}
		}

		triples, err := st.SearchTriples(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}
		return jsonResult(triples)
	})
}

func registerGetEntityTool(s *server.MCPServer, st *store.Store, threshold float64) {
	tool := mcp.NewTool("get_entity",
		mcp.WithDescription("Get everything known about an entity: the triples mentioning it and its Wikidata link if one was accepted."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Entity label, e.g. 'kubernetes'"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		label, err := req.RequireString("label")
		if err != nil {
			return mcp.NewToolResultError("label is required"), nil
		}

		triples, err := st.ContextTriples(ctx, label, nil, 50)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("entity lookup: %v", err)), nil
		}

		links, err := st.AcceptedLinks(ctx, threshold)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("link lookup: %v", err)), nil
		}

		out := struct {
			Label   string           `json:"label"`
			Triples []extract.Triple `json:"triples"`
			Link    *store.LinkEntry `json:"link,omitempty"`
		}{Label: label, Triples: triples}

		for i := range links {
			if links[i].Label == label {
				out.Link = &links[i]
				break
			}
		}
		return jsonResult(out)
	})
}

func registerListPredicatesTool(s *server.MCPServer) {
	tool := mcp.NewTool("list_predicates",
		mcp.WithDescription("List the closed predicate vocabulary used for extraction, with the meaning of each predicate."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(extract.PredicateVocabulary)
	})
}

func registerGetLinksTool(s *server.MCPServer, st *store.Store, threshold float64) {
	tool := mcp.NewTool("get_links",
		mcp.WithDescription("List accepted Wikidata links: entity labels resolved to QIDs at or above the confidence threshold."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		links, err := st.AcceptedLinks(ctx, threshold)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("link lookup: %v", err)), nil
		}
		return jsonResult(links)
	})
}

func registerCorpusStatsTool(s *server.MCPServer, st *store.Store, threshold float64) {
	tool := mcp.NewTool("corpus_stats",
		mcp.WithDescription("Corpus statistics: triple, entity, and session counts, the predicate histogram, and link cache state."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx, threshold)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats: %v", err)), nil
		}
		return jsonResult(stats)
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
