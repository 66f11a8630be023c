package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

const anthropicMaxTokens = 2048

// AnthropicCompleter calls the Anthropic messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	return &AnthropicCompleter{client: anthropic.NewClient(apiKey), model: model}
}

func (a *AnthropicCompleter) Model() string {
	return a.model
}

func (a *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	temperature := req.Temperature
	system := req.System
	if req.JSON {
		system += "\nRespond with a single JSON object and no other text."
	}
	msgReq := anthropic.MessagesRequest{
		Model:  anthropic.Model(a.model),
		System: system,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(req.User)},
		}},
		MaxTokens:   anthropicMaxTokens,
		Temperature: &temperature,
	}

	resp, err := a.client.CreateMessages(ctx, msgReq)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("anthropic create messages: %w", err)
	}

	text := anthropicText(resp)
	if text == "" {
		return CompletionResult{}, ErrEmptyResponse
	}
	return CompletionResult{
		Text:       text,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Model:      a.model,
	}, nil
}

func anthropicText(resp anthropic.MessagesResponse) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	return sb.String()
}
