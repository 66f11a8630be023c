// Package llm adapts the supported model providers to the opaque completion and
// transcription calls used by the dialogue core.
package llm

import (
	"context"
	"errors"
	"time"

	"chefbot_go_backend/internal/models"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// CompletionRequest is a single system+user prompt round trip.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	// JSON asks the provider for structured (JSON object) output where supported.
	JSON    bool
	Timeout time.Duration
}

type CompletionResult struct {
	Text       string
	TokensUsed int
	Model      string
}

// Completer is a language-model backend.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
	Model() string
}

// Transcriber turns a voice message into text. Failures yield an empty string.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, langHint models.Language) string
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// NoopTranscriber is used when no speech-to-text provider is configured.
type NoopTranscriber struct{}

func (NoopTranscriber) Transcribe(context.Context, []byte, models.Language) string {
	return ""
}
