package alias

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultAliases(t *testing.T) {
	table := Default()

	tests := []struct {
		input string
		want  string
	}{
		{"k8s", "kubernetes"},
		{"K8s", "kubernetes"},
		{"  js  ", "javascript"},
		{"postgres", "postgresql"},
		{"neo4j", "neo4j"},           // no alias: passthrough
		{"Knowledge Graph", "knowledge graph"}, // lowercased
	}
	for _, tt := range tests {
		if got := table.Apply(tt.input); got != tt.want {
			t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")
	if err := os.WriteFile(path, []byte(`{"fuseki": "apache jena fuseki", "K8s": "k8s-override"}`), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := table.Apply("fuseki"); got != "apache jena fuseki" {
		t.Errorf("user alias not applied: %q", got)
	}
	// User entries override built-ins (key lowercased on load).
	if got := table.Apply("k8s"); got != "k8s-override" {
		t.Errorf("user override not applied: %q", got)
	}
	// Built-ins survive the merge.
	if got := table.Apply("js"); got != "javascript" {
		t.Errorf("built-in alias lost after merge: %q", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if got := table.Apply("k8s"); got != "kubernetes" {
		t.Errorf("defaults not loaded: %q", got)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed alias file")
	}
}
