// Package alias maps entity surface forms to canonical labels. The table is
// applied before frequency aggregation and before link-cache lookups so
// that "k8s" and "kubernetes" count and resolve as one entity.
package alias

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// defaults are the built-in abbreviation expansions. User-supplied tables
// extend (and may override) these.
var defaults = map[string]string{
	"k8s":      "kubernetes",
	"js":       "javascript",
	"ts":       "typescript",
	"py":       "python",
	"golang":   "go",
	"postgres": "postgresql",
	"mongo":    "mongodb",
	"es":       "elasticsearch",
	"tf":       "terraform",
	"gh":       "github",
	"vscode":   "visual studio code",
	"ml":       "machine learning",
	"ai":       "artificial intelligence",
	"llm":      "large language model",
	"nlp":      "natural language processing",
	"db":       "database",
	"api":      "application programming interface",
	"sdk":      "software development kit",
	"cli":      "command-line interface",
	"ci/cd":    "continuous integration",
	"repo":     "repository",
	"config":   "configuration",
	"k8":       "kubernetes",
	"rdf":      "resource description framework",
	"sparql":   "sparql",
}

// Table is a read-only alias mapping.
type Table struct {
	entries map[string]string
}

// Default returns a table containing only the built-in aliases.
func Default() *Table {
	return &Table{entries: defaults}
}

// Load reads a user alias file (a flat JSON object of surface -> canonical)
// and merges it over the built-in defaults. A missing file is not an error;
// the defaults are returned.
func Load(path string) (*Table, error) {
	merged := make(map[string]string, len(defaults))
	for k, v := range defaults {
		merged[k] = v
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return &Table{entries: merged}, nil
			}
			return nil, fmt.Errorf("reading alias file %s: %w", path, err)
		}

		var user map[string]string
		if err := json.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
		}
		for k, v := range user {
			merged[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}

	return &Table{entries: merged}, nil
}

// Apply returns the canonical form of a label, or the trimmed lowercased
// label itself when no alias exists.
func (t *Table) Apply(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	if canonical, ok := t.entries[key]; ok {
		return canonical
	}
	return key
}

// Len reports the number of alias entries.
func (t *Table) Len() int {
	return len(t.entries)
}
