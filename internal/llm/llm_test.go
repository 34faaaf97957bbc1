package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseProviderFlag(t *testing.T) {
	tests := []struct {
		flag     string
		provider string
		model    string
		wantErr  bool
	}{
		{"", "", "", false},
		{"gemini", "gemini", "", false},
		{"openai/gpt-4o-mini", "openai", "gpt-4o-mini", false},
		{"OLLAMA/llama3.1", "ollama", "llama3.1", false},
		{"anthropic", "anthropic", "", false},
		{"bedrock", "", "", true},
		{"gpt-4o-mini", "", "", true},
	}
	for _, tt := range tests {
		cfg, err := ParseProviderFlag(tt.flag)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseProviderFlag(%q): expected error", tt.flag)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseProviderFlag(%q): %v", tt.flag, err)
			continue
		}
		if cfg.Provider != tt.provider || cfg.Model != tt.model {
			t.Errorf("ParseProviderFlag(%q) = %+v, want provider=%q model=%q", tt.flag, cfg, tt.provider, tt.model)
		}
	}
}

func TestDetectPriorityOrder(t *testing.T) {
	for _, v := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(v, "")
	}
	// Point the Ollama probe at a dead address so Detect cannot find a
	// real local server.
	t.Setenv("OLLAMA_BASE_URL", "http://127.0.0.1:1")

	ctx := context.Background()
	if got := Detect(ctx); got != "" {
		t.Errorf("Detect with no keys = %q, want empty", got)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	if got := Detect(ctx); got != "anthropic" {
		t.Errorf("Detect = %q, want anthropic", got)
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	if got := Detect(ctx); got != "openai" {
		t.Errorf("Detect = %q, want openai (outranks anthropic)", got)
	}

	t.Setenv("GEMINI_API_KEY", "test")
	if got := Detect(ctx); got != "gemini" {
		t.Errorf("Detect = %q, want gemini (outranks openai)", got)
	}
}

func TestDetectFindsOllama(t *testing.T) {
	for _, v := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(v, "")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models": []}`)
	}))
	defer srv.Close()
	t.Setenv("OLLAMA_BASE_URL", srv.URL)

	if got := Detect(context.Background()); got != "ollama" {
		t.Errorf("Detect = %q, want ollama", got)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: "palm"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewProviderMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewProvider(context.Background(), Config{Provider: "openai"}); err == nil {
		t.Error("expected error when the API key is absent")
	}
}

func TestNewProviderDefaultModel(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "ollama", BaseURL: "http://127.0.0.1:11434"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "ollama/"+defaultModels["ollama"] {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestOllamaComplete(t *testing.T) {
	var gotReq ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"response": " [{\"subject\":\"go\",\"predicate\":\"uses\",\"object\":\"goroutines\"}] ", "done": true}`)
	}))
	defer srv.Close()

	p := newOllamaProvider(srv.URL, "llama3.1")
	out, err := p.Complete(context.Background(), "extract triples", CompletionOpts{
		Temperature: 0.2,
		MaxTokens:   2048,
		Format:      "json",
		System:      "you are an ontologist",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `[{"subject":"go","predicate":"uses","object":"goroutines"}]` {
		t.Errorf("response not trimmed: %q", out)
	}
	if gotReq.Model != "llama3.1" || gotReq.Format != "json" || gotReq.Stream {
		t.Errorf("request fields: %+v", gotReq)
	}
	if gotReq.System != "you are an ontologist" {
		t.Errorf("system prompt: %q", gotReq.System)
	}
	if gotReq.Options["num_predict"] != float64(2048) {
		t.Errorf("num_predict: %v", gotReq.Options["num_predict"])
	}
}

func TestOllamaCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := newOllamaProvider(srv.URL, "missing-model")
	_, err := p.Complete(context.Background(), "hello", CompletionOpts{})
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", httpErr.StatusCode)
	}
}
