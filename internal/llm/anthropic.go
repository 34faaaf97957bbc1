package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// anthropicProvider implements Provider using the go-anthropic client.
type anthropicProvider struct {
	client *anthropic.Client
	model  string
}

func newAnthropicProvider(apiKey, model string) *anthropicProvider {
	return &anthropicProvider{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (a *anthropicProvider) Name() string {
	return "anthropic/" + a.model
}

func (a *anthropicProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	model := a.model
	if opts.Model != "" {
		model = opts.Model
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	req := anthropic.MessagesRequest{
		Model: anthropic.Model(model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: maxTokens,
	}
	if opts.Temperature > 0 {
		temp := float32(opts.Temperature)
		req.Temperature = &temp
	}
	if opts.System != "" {
		req.System = opts.System
	}

	resp, err := a.client.CreateMessages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == nil {
		return "", fmt.Errorf("no response content from anthropic API")
	}
	return strings.TrimSpace(*resp.Content[0].Text), nil
}
