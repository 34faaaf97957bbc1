// Package llm provides a provider-agnostic completion adapter for the
// extraction and linking pipelines. Four backends are supported: Gemini,
// OpenAI, Anthropic, and a local Ollama server.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider is the interface for LLM completions.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g., "gemini/gemini-2.5-flash").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Model       string  // Override model for this request (empty = use provider default)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // System prompt (optional)
}

// Config holds provider configuration.
type Config struct {
	Provider string // "gemini", "openai", "anthropic", "ollama" (empty = auto-detect)
	Model    string // e.g., "gemini-2.5-flash" (empty = provider default)
	APIKey   string // API key (empty = read from env)
	BaseURL  string // Optional URL override (openai, ollama)
}

// defaultModels maps each provider to the model used when none is given.
var defaultModels = map[string]string{
	"gemini":    "gemini-2.5-flash",
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-haiku-4-5-latest",
	"ollama":    "llama3.1",
}

// HTTPError represents an HTTP error with additional context. Rate-limited
// responses carry the server's Retry-After interval so callers can back off
// politely.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NewProvider creates an LLM provider from the given config. An empty
// Provider field auto-detects from the environment.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = Detect(ctx)
		if name == "" {
			return nil, fmt.Errorf("no LLM provider available: set GEMINI_API_KEY, OPENAI_API_KEY, or ANTHROPIC_API_KEY, or run a local Ollama server")
		}
	}

	model := cfg.Model
	if model == "" {
		model = defaultModels[name]
	}

	switch name {
	case "gemini":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("gemini provider requires GEMINI_API_KEY or GOOGLE_API_KEY env var")
		}
		return newGeminiProvider(ctx, key, model)

	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY env var")
		}
		return newOpenAIProvider(key, model, cfg.BaseURL), nil

	case "anthropic":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY env var")
		}
		return newAnthropicProvider(key, model), nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_BASE_URL")
		}
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return newOllamaProvider(baseURL, model), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: gemini, openai, anthropic, ollama)", cfg.Provider)
	}
}

// ParseProviderFlag parses a --provider flag value into a Config.
// Accepts "name" or "name/model" (e.g. "gemini", "openai/gpt-4o-mini").
// An empty value means auto-detect from the environment.
func ParseProviderFlag(flag string) (Config, error) {
	if flag == "" {
		return Config{}, nil
	}

	parts := strings.SplitN(flag, "/", 2)
	provider := strings.ToLower(parts[0])

	switch provider {
	case "gemini", "openai", "anthropic", "ollama":
	default:
		return Config{}, fmt.Errorf("unknown provider %q (supported: gemini, openai, anthropic, ollama)", parts[0])
	}

	cfg := Config{Provider: provider}
	if len(parts) == 2 {
		cfg.Model = parts[1]
	}
	return cfg, nil
}

// Detect returns the provider implied by the environment, checking API keys
// in priority order and falling back to a local Ollama probe. Returns ""
// when nothing is available.
func Detect(ctx context.Context) string {
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		return "gemini"
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return "openai"
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return "anthropic"
	}
	if ollamaReachable(ctx) {
		return "ollama"
	}
	return ""
}

// ollamaReachable probes the local Ollama server's tag listing endpoint.
func ollamaReachable(ctx context.Context) bool {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, "GET", baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
