package extract

import "testing"

func TestIsValidEntity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "empty", input: "", want: false},
		{name: "single char", input: "x", want: false},
		{name: "stopword", input: "exit", want: false},
		{name: "stopword phrase", input: "command name", want: false},
		{name: "serialization artifact", input: "[object object]", want: false},
		{name: "hex color", input: "#ff0000", want: false},
		{name: "npm scope", input: "@radix-ui", want: false},
		{name: "env var", input: "$home", want: false},
		{name: "glob", input: "*.py", want: false},
		{name: "dotfile", input: ".gitignore", want: false},
		{name: "cli flag", input: "--verbose", want: false},
		{name: "absolute path", input: "/usr/local/bin", want: false},
		{name: "windows path", input: `c:\users\dev`, want: false},
		{name: "python filename", input: "__init__.py", want: false},
		{name: "json filename", input: "config.json", want: false},
		{name: "hyphenated filename", input: "auth-utils.ts", want: false},
		{name: "icd code", input: "a021", want: false},
		{name: "icd code with decimal", input: "k25.0", want: false},
		{name: "icd underscore", input: "ansied_022_001", want: false},
		{name: "protocol code", input: "dengue_008", want: false},
		{name: "snake case 3 segments", input: "anthropic_api_key", want: false},
		{name: "numeric prefix", input: "1 llm call", want: false},
		{name: "version string", input: "5.0.0", want: false},
		{name: "decimal", input: "0.75", want: false},
		{name: "pixel value", input: "1400px", want: false},
		{name: "pure number", input: "42", want: false},
		{name: "ip address", input: "10.158.0.38", want: false},
		{name: "duration", input: "120 seconds", want: false},
		{name: "size", input: "10mb", want: false},
		{name: "git hash", input: "7f9ef80", want: false},
		{name: "quantity phrase", input: "80 tests", want: false},
		{name: "ordinal phrase", input: "7th character extensions", want: false},
		{name: "fraction", input: "3/4", want: false},
		{name: "css dimension in phrase", input: "max height 200px", want: false},
		{name: "percentage", input: "50% discount", want: false},
		{name: "array index", input: "candidates[0]", want: false},
		{name: "function call", input: "express.json()", want: false},
		{name: "two char noise", input: "bp", want: false},
		{name: "four word phrase", input: "notification when claude finishes", want: false},

		{name: "simple tool", input: "neo4j", want: true},
		{name: "language", input: "python", want: true},
		{name: "two word concept", input: "knowledge graph", want: true},
		{name: "three word concept", input: "graph query language", want: true},
		{name: "product name", input: "claude agent sdk", want: true},
		{name: "no extension", input: "dockerfile", want: true},
		{name: "two segment snake case", input: "knowledge_graph", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEntity(tt.input)
			if got != tt.want {
				t.Fatalf("IsValidEntity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidEntityWhitelist(t *testing.T) {
	for term := range whitelistedEntities {
		if !IsValidEntity(term) {
			t.Errorf("whitelisted term %q should pass validation", term)
		}
	}
}

func TestIsLinkableEntity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "empty", input: "", want: false},
		{name: "whitespace only", input: "   ", want: false},
		{name: "single char", input: "x", want: false},
		{name: "known extension filename", input: "server.py", want: false},
		{name: "unknown extension filename", input: "program.exe", want: false},
		{name: "hex color", input: "#ff0000", want: false},
		{name: "npm scope", input: "@types/node", want: false},
		{name: "env var", input: "$HOME", want: false},
		{name: "cli flag", input: "--verbose", want: false},
		{name: "dotfile", input: ".gitignore", want: false},
		{name: "numeric prefix", input: "3 files", want: false},
		{name: "version", input: "2.5.1", want: false},
		{name: "decimal", input: "0.75", want: false},
		{name: "two char noise", input: "bp", want: false},
		{name: "another two char noise", input: "zz", want: false},
		{name: "array index", input: "arr[0]", want: false},
		{name: "function call", input: "func()", want: false},
		{name: "css pixel", input: "100px", want: false},
		{name: "css viewport", input: "50vh", want: false},
		{name: "percentage", input: "50%", want: false},
		{name: "multi segment path", input: "src/components/auth", want: false},
		{name: "simple path", input: "pipeline/common", want: false},
		{name: "icd code", input: "a021", want: false},
		{name: "short icd code", input: "j45", want: false},
		{name: "icd underscore", input: "ansied_022_001", want: false},
		{name: "snake case 3 segments", input: "anthropic_api_key", want: false},
		{name: "protocol code", input: "dengue_008", want: false},
		{name: "glob", input: "*.py", want: false},
		{name: "pure number", input: "42", want: false},
		{name: "pi", input: "3.14", want: false},
		{name: "config fragment", input: "key=value", want: false},
		{name: "single quoted", input: "'hello'", want: false},
		{name: "double quoted", input: `"world"`, want: false},
		{name: "screen dimension", input: "1920x1080", want: false},
		{name: "percent prefix", input: "% something", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsLinkableEntity(tt.input)
			if got != tt.want {
				t.Fatalf("IsLinkableEntity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsLinkableEntityWhitelistBypass(t *testing.T) {
	for _, term := range []string{"ai", "api", "sdk", "llm", "rdf", "git", "mcp", "go", "js"} {
		if !IsLinkableEntity(term) {
			t.Errorf("whitelisted term %q should be linkable", term)
		}
	}
}

func TestIsLinkableEntityAcceptsRealEntities(t *testing.T) {
	valid := []string{
		"neo4j", "python", "docker", "kubernetes",
		"graph database", "knowledge graph",
		"claude", "langchain", "fuseki",
		"wikidata", "sparql", "cypher",
	}
	for _, entity := range valid {
		if !IsLinkableEntity(entity) {
			t.Errorf("%q should be linkable", entity)
		}
	}
}
