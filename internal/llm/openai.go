package llm

import (
	"bytes"
	"context"
	"fmt"

	"chefbot_go_backend/internal/models"

	openai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/rs/zerolog/log"
)

// OpenAICompleter talks to OpenAI or any OpenAI-compatible endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}

func NewOpenAICompleter(apiKey, model, baseURL string) *OpenAICompleter {
	return &OpenAICompleter{client: newOpenAIClient(apiKey, baseURL), model: model}
}

func (o *OpenAICompleter) Model() string {
	return o.model
}

func (o *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	temperature := req.Temperature
	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: &temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return CompletionResult{}, ErrEmptyResponse
	}

	return CompletionResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      o.model,
	}, nil
}

// WhisperTranscriber uses the OpenAI audio transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(apiKey, model, baseURL string) *WhisperTranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{client: newOpenAIClient(apiKey, baseURL), model: model}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, langHint models.Language) string {
	if len(audio) == 0 {
		return ""
	}
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: "voice.ogg",
		Reader:   bytes.NewReader(audio),
	}
	if langHint != models.LangUnknown && langHint != "" {
		req.Language = string(langHint)
	}

	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(audio)).Msg("Voice transcription failed")
		return ""
	}
	return resp.Text
}
