package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ollamaProvider implements Provider against a local Ollama server's
// /api/generate endpoint. No API key is involved.
type ollamaProvider struct {
	baseURL string
	model   string
	http    *http.Client
}

func newOllamaProvider(baseURL, model string) *ollamaProvider {
	return &ollamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// Local models can be slow to load on first use.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (o *ollamaProvider) Name() string {
	return "ollama/" + o.model
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (o *ollamaProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}

	reqBody := ollamaRequest{
		Model:  model,
		Prompt: prompt,
		System: opts.System,
		Stream: false,
		Options: map[string]any{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		reqBody.Options["num_predict"] = opts.MaxTokens
	}
	if strings.ToLower(opts.Format) == "json" {
		reqBody.Format = "json"
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: %s", parsed.Error)
	}
	return strings.TrimSpace(parsed.Response), nil
}
