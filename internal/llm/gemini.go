package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiProvider implements Provider using the official Google Generative AI SDK.
type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGeminiProvider(ctx context.Context, apiKey, model string) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: model}, nil
}

func (g *geminiProvider) Name() string {
	return "gemini/" + g.model
}

func (g *geminiProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	name := g.model
	if opts.Model != "" {
		name = opts.Model
	}

	model := g.client.GenerativeModel(name)
	model.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if strings.ToLower(opts.Format) == "json" {
		model.ResponseMIMEType = "application/json"
	}
	if opts.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.System)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini API")
	}

	part := resp.Candidates[0].Content.Parts[0]
	txt, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type %T", part)
	}
	return strings.TrimSpace(string(txt)), nil
}
