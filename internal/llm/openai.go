package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openaiProvider implements Provider using the go-openai client.
type openaiProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(apiKey, model, baseURL string) *openaiProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &openaiProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (o *openaiProvider) Name() string {
	return "openai/" + o.model
}

func (o *openaiProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}

	messages := []openai.ChatCompletionMessage{}
	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if strings.ToLower(opts.Format) == "json" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from openai API")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
