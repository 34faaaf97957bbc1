// Package config resolves pipeline settings from, in order of increasing
// precedence: built-in defaults, the YAML config file, DEVKG_* environment
// variables, and CLI flags. Every resolved value remembers where it came
// from so `devkg config` can explain the effective configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath     string
	CLIProvider    string // --provider
	CLIDBPath      string // --db
	CLIProjectsDir string // --projects
}

// ResolvedConfig is the fully resolved configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath      ResolvedValue `json:"db_path"`
	ProjectsDir ResolvedValue `json:"projects_dir"`
	AliasesPath ResolvedValue `json:"aliases_path"`

	LLMProvider ResolvedValue `json:"llm_provider"`
	LLMModel    ResolvedValue `json:"llm_model"`

	LinkMinSessions ResolvedValue `json:"link_min_sessions"`
	LinkConfidence  ResolvedValue `json:"link_confidence"`
	LinkWorkers     ResolvedValue `json:"link_workers"`

	WikidataURL ResolvedValue `json:"wikidata_url"`

	FusekiURL      ResolvedValue `json:"fuseki_url"`
	FusekiDataset  ResolvedValue `json:"fuseki_dataset"`
	FusekiUser     ResolvedValue `json:"fuseki_user"`
	FusekiPassword ResolvedValue `json:"fuseki_password"`

	Neo4jURI      ResolvedValue `json:"neo4j_uri"`
	Neo4jUser     ResolvedValue `json:"neo4j_user"`
	Neo4jPassword ResolvedValue `json:"neo4j_password"`

	QueueURL  ResolvedValue `json:"queue_url"`
	QueueName ResolvedValue `json:"queue_name"`
}

type fileConfig struct {
	DBPath      string `yaml:"db_path"`
	ProjectsDir string `yaml:"projects_dir"`
	Aliases     string `yaml:"aliases"`
	LLM         struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
	} `yaml:"llm"`
	Link struct {
		MinSessions int     `yaml:"min_sessions"`
		Confidence  float64 `yaml:"confidence"`
		Workers     int     `yaml:"workers"`
	} `yaml:"link"`
	Wikidata struct {
		URL string `yaml:"url"`
	} `yaml:"wikidata"`
	Fuseki struct {
		URL      string `yaml:"url"`
		Dataset  string `yaml:"dataset"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"fuseki"`
	Neo4j struct {
		URI      string `yaml:"uri"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"neo4j"`
	Queue struct {
		URL  string `yaml:"url"`
		Name string `yaml:"name"`
	} `yaml:"queue"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".devkg", "config.yaml")
}

// DefaultProjectsDir is where Claude Code keeps session transcripts.
func DefaultProjectsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "projects")
}

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.ProjectsDir, cfg.ProjectsDir, SourceConfig, path)
		apply(&out.AliasesPath, cfg.Aliases, SourceConfig, path)
		apply(&out.LLMProvider, cfg.LLM.Provider, SourceConfig, path)
		apply(&out.LLMModel, cfg.LLM.Model, SourceConfig, path)
		if cfg.Link.MinSessions > 0 {
			apply(&out.LinkMinSessions, strconv.Itoa(cfg.Link.MinSessions), SourceConfig, path)
		}
		if cfg.Link.Confidence > 0 {
			apply(&out.LinkConfidence, strconv.FormatFloat(cfg.Link.Confidence, 'f', -1, 64), SourceConfig, path)
		}
		if cfg.Link.Workers > 0 {
			apply(&out.LinkWorkers, strconv.Itoa(cfg.Link.Workers), SourceConfig, path)
		}
		apply(&out.WikidataURL, cfg.Wikidata.URL, SourceConfig, path)
		apply(&out.FusekiURL, cfg.Fuseki.URL, SourceConfig, path)
		apply(&out.FusekiDataset, cfg.Fuseki.Dataset, SourceConfig, path)
		apply(&out.FusekiUser, cfg.Fuseki.User, SourceConfig, path)
		apply(&out.FusekiPassword, cfg.Fuseki.Password, SourceConfig, path)
		apply(&out.Neo4jURI, cfg.Neo4j.URI, SourceConfig, path)
		apply(&out.Neo4jUser, cfg.Neo4j.User, SourceConfig, path)
		apply(&out.Neo4jPassword, cfg.Neo4j.Password, SourceConfig, path)
		apply(&out.QueueURL, cfg.Queue.URL, SourceConfig, path)
		apply(&out.QueueName, cfg.Queue.Name, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "DEVKG_DB")
	applyEnv(&out.DBPath, "DEVKG_DB_PATH")
	applyEnv(&out.ProjectsDir, "DEVKG_PROJECTS_DIR")
	applyEnv(&out.AliasesPath, "DEVKG_ALIASES")
	applyEnv(&out.LLMProvider, "DEVKG_LLM")
	applyEnv(&out.LLMModel, "DEVKG_LLM_MODEL")
	applyEnv(&out.LinkMinSessions, "DEVKG_LINK_MIN_SESSIONS")
	applyEnv(&out.LinkConfidence, "DEVKG_LINK_CONFIDENCE")
	applyEnv(&out.LinkWorkers, "DEVKG_LINK_WORKERS")
	applyEnv(&out.WikidataURL, "DEVKG_WIKIDATA_URL")
	applyEnv(&out.FusekiURL, "FUSEKI_URL")
	applyEnv(&out.FusekiDataset, "FUSEKI_DATASET")
	applyEnv(&out.Neo4jURI, "NEO4J_URI")
	applyEnv(&out.Neo4jUser, "NEO4J_USER")
	applyEnv(&out.Neo4jPassword, "NEO4J_PASSWORD")
	applyEnv(&out.QueueURL, "RABBITMQ_URL")
	applyEnv(&out.QueueName, "DEVKG_QUEUE")

	apply(&out.LLMProvider, opts.CLIProvider, SourceCLI, "--provider")
	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.ProjectsDir, opts.CLIProjectsDir, SourceCLI, "--projects")

	if out.ProjectsDir.Value == "" {
		out.ProjectsDir = ResolvedValue{Value: DefaultProjectsDir(), Source: SourceDefault, From: "built-in default"}
	}
	for _, v := range []*ResolvedValue{&out.DBPath, &out.ProjectsDir, &out.AliasesPath} {
		if v.Value != "" {
			v.Value = expandUserPath(v.Value)
		}
	}

	return out, nil
}

// MinSessions returns the session-frequency floor for link candidates.
func (r ResolvedConfig) MinSessions() int {
	if n, err := strconv.Atoi(r.LinkMinSessions.Value); err == nil && n > 0 {
		return n
	}
	return 2
}

// Confidence returns the link acceptance threshold.
func (r ResolvedConfig) Confidence() float64 {
	if f, err := strconv.ParseFloat(r.LinkConfidence.Value, 64); err == nil && f > 0 {
		return f
	}
	return 0.7
}

// Workers returns the linking concurrency.
func (r ResolvedConfig) Workers() int {
	if n, err := strconv.Atoi(r.LinkWorkers.Value); err == nil && n > 0 {
		return n
	}
	return 4
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
