package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/devkg/devkg/internal/alias"
	"github.com/devkg/devkg/internal/config"
	"github.com/devkg/devkg/internal/extract"
	"github.com/devkg/devkg/internal/llm"
	"github.com/devkg/devkg/internal/sink"
	"github.com/devkg/devkg/internal/store"
)

const version = "0.1.0-dev"

func main() {
	// A .env beside the binary is a convenience for local runs; absence
	// is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(os.Args[2:])
	case "backfill":
		err = runBackfill(os.Args[2:])
	case "link":
		err = runLink(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "serve-mcp":
		err = runServeMCP(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "consume":
		err = runConsume(os.Args[2:])
	case "wipe-cache":
		err = runWipeCache(os.Args[2:])
	case "config":
		err = runShowConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("devkg %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonOpts are the flags shared by most commands.
type commonOpts struct {
	configPath string // --config
	db         string // --db
	projects   string // --projects
	provider   string // --provider, "name" or "name/model"
	jsonOut    bool   // --json
}

// takeCommon consumes a shared flag at args[*i]; returns false when the
// flag belongs to the caller.
func (o *commonOpts) takeCommon(args []string, i *int) (bool, error) {
	switch {
	case args[*i] == "--config" && *i+1 < len(args):
		*i++
		o.configPath = args[*i]
	case args[*i] == "--db" && *i+1 < len(args):
		*i++
		o.db = args[*i]
	case args[*i] == "--projects" && *i+1 < len(args):
		*i++
		o.projects = args[*i]
	case args[*i] == "--provider" && *i+1 < len(args):
		*i++
		o.provider = args[*i]
	case args[*i] == "--json":
		o.jsonOut = true
	default:
		return false, nil
	}
	return true, nil
}

func (o commonOpts) resolve() (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath:     o.configPath,
		CLIProvider:    o.provider,
		CLIDBPath:      o.db,
		CLIProjectsDir: o.projects,
	})
}

func openStore(cfg config.ResolvedConfig) (*store.Store, error) {
	s, err := store.NewStore(store.Config{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

// buildProvider resolves the LLM provider: the CLI/config value if set,
// else environment auto-detection.
func buildProvider(ctx context.Context, cfg config.ResolvedConfig) (llm.Provider, error) {
	flag := cfg.LLMProvider.Value
	llmCfg, err := llm.ParseProviderFlag(flag)
	if err != nil {
		return nil, err
	}
	if llmCfg.Model == "" {
		llmCfg.Model = cfg.LLMModel.Value
	}
	if llmCfg.Provider == "" {
		llmCfg.Provider = llm.Detect(ctx)
		if llmCfg.Provider == "" {
			return nil, fmt.Errorf("no LLM provider available: set --provider, DEVKG_LLM, or an API key (GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY), or run Ollama locally")
		}
	}
	return llm.NewProvider(ctx, llmCfg)
}

func loadAliases(cfg config.ResolvedConfig) (*alias.Table, error) {
	if cfg.AliasesPath.Value == "" {
		return alias.Default(), nil
	}
	t, err := alias.Load(cfg.AliasesPath.Value)
	if err != nil {
		return nil, fmt.Errorf("loading aliases: %w", err)
	}
	return t, nil
}

func newExtractor(provider llm.Provider, s *store.Store) *extract.Extractor {
	return extract.NewExtractor(provider, s.TripleCache(), extract.DefaultConfig())
}

// realtimeSinks builds the best-effort sinks for the realtime path from
// whatever endpoints are configured. Neo4j is export-only: dialing Bolt
// on every hook fire is too slow for the hot path.
func realtimeSinks(cfg config.ResolvedConfig) []sink.GraphSink {
	var sinks []sink.GraphSink
	if cfg.FusekiURL.Value != "" {
		sinks = append(sinks, sink.NewFusekiSink(sink.FusekiConfig{
			BaseURL:  cfg.FusekiURL.Value,
			Dataset:  cfg.FusekiDataset.Value,
			Username: cfg.FusekiUser.Value,
			Password: cfg.FusekiPassword.Value,
		}))
	}
	return sinks
}

func printUsage() {
	fmt.Printf(`devkg %s — Knowledge graph extraction from coding-session transcripts

Usage:
  devkg <command> [arguments]

Commands:
  process             Extract triples from one transcript's last assistant turn
  backfill            Sweep all session transcripts and extract everything
  link                Resolve frequent entities to Wikidata QIDs
  export              Serialize the corpus as Turtle, or push to Fuseki/Neo4j
  stats               Show corpus and cache statistics
  watch               Watch the projects directory and process transcripts live
  consume             Consume pipeline jobs from RabbitMQ
  serve-mcp           Serve the knowledge graph over MCP on stdio
  wipe-cache          Clear the extraction and/or link caches
  config              Print the resolved configuration with provenance
  version             Print version

Common Flags:
  --config <path>     Config file (default ~/.devkg/config.yaml)
  --db <path>         SQLite database path
  --projects <dir>    Session transcripts root (default ~/.claude/projects)
  --provider <p>      LLM provider, "name" or "name/model"
  --json              Machine-readable output

Flags:
  -h, --help          Show this help message
  -v, --version       Print version
`, version)
}
