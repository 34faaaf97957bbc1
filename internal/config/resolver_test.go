package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	cfgPath := writeConfig(t, `db_path: ~/.devkg/from-config.db
projects_dir: ~/from-config-projects
llm:
  provider: gemini
  model: gemini-2.5-flash
link:
  min_sessions: 3
`)

	t.Setenv("DEVKG_DB", "~/from-env.db")
	t.Setenv("DEVKG_LLM", "openai")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath:  cfgPath,
		CLIProvider: "ollama/llama3.1",
		CLIDBPath:   "~/from-cli.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.DBPath.Source != SourceCLI {
		t.Fatalf("expected DB path source cli, got %s", resolved.DBPath.Source)
	}
	if resolved.LLMProvider.Source != SourceCLI || resolved.LLMProvider.Value != "ollama/llama3.1" {
		t.Fatalf("expected llm provider from cli, got %+v", resolved.LLMProvider)
	}
	if resolved.ProjectsDir.Source != SourceConfig {
		t.Fatalf("expected projects dir from config, got %s", resolved.ProjectsDir.Source)
	}
	if resolved.LinkMinSessions.Source != SourceConfig || resolved.MinSessions() != 3 {
		t.Fatalf("min_sessions: %+v", resolved.LinkMinSessions)
	}
}

func TestResolveConfig_EnvOverridesConfig(t *testing.T) {
	cfgPath := writeConfig(t, `fuseki:
  url: http://config-host:3030
neo4j:
  uri: bolt://config-host:7687
`)
	t.Setenv("FUSEKI_URL", "http://env-host:3030")

	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.FusekiURL.Value != "http://env-host:3030" || resolved.FusekiURL.Source != SourceEnv {
		t.Fatalf("fuseki url: %+v", resolved.FusekiURL)
	}
	if resolved.Neo4jURI.Value != "bolt://config-host:7687" || resolved.Neo4jURI.Source != SourceConfig {
		t.Fatalf("neo4j uri: %+v", resolved.Neo4jURI)
	}
}

func TestResolveConfig_MissingFileUsesDefaults(t *testing.T) {
	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
	})
	if err != nil {
		t.Fatalf("missing config file must not error: %v", err)
	}
	if resolved.ProjectsDir.Source != SourceDefault || resolved.ProjectsDir.Value == "" {
		t.Fatalf("projects dir default: %+v", resolved.ProjectsDir)
	}
	if resolved.MinSessions() != 2 {
		t.Errorf("MinSessions default = %d", resolved.MinSessions())
	}
	if resolved.Confidence() != 0.7 {
		t.Errorf("Confidence default = %v", resolved.Confidence())
	}
	if resolved.Workers() != 4 {
		t.Errorf("Workers default = %d", resolved.Workers())
	}
}

func TestResolveConfig_MalformedFileErrors(t *testing.T) {
	cfgPath := writeConfig(t, "llm: [not: valid")
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath}); err == nil {
		t.Error("malformed YAML must surface an error")
	}
}

func TestResolveConfig_TypedAccessors(t *testing.T) {
	t.Setenv("DEVKG_LINK_CONFIDENCE", "0.85")
	t.Setenv("DEVKG_LINK_WORKERS", "8")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Confidence() != 0.85 {
		t.Errorf("Confidence = %v", resolved.Confidence())
	}
	if resolved.Workers() != 8 {
		t.Errorf("Workers = %d", resolved.Workers())
	}
}

func TestExpandUserPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandUserPath("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Errorf("expandUserPath = %q", got)
	}
	if got := expandUserPath("/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("absolute path must pass through, got %q", got)
	}
}
