package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Settings selects and configures the providers.
type Settings struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAIBaseURL         string
	OpenAITranscribeModel string

	AnthropicAPIKey string
	AnthropicModel  string
}

// Backends is what the factory hands to main.
type Backends struct {
	Completer   Completer
	Transcriber Transcriber
	close       func() error
}

// Close releases provider clients that hold connections.
func (b *Backends) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// New builds the completer for s.Provider and a transcriber. Speech-to-text always
// goes through the OpenAI audio endpoint; without an OpenAI key voice is disabled.
func New(ctx context.Context, s Settings) (*Backends, error) {
	b := &Backends{}

	switch s.Provider {
	case ProviderGemini, "":
		if s.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_AI_STUDIO_API_KEY not set")
		}
		g, err := NewGeminiCompleter(ctx, s.GeminiAPIKey, s.GeminiModel)
		if err != nil {
			return nil, err
		}
		b.Completer = g
		b.close = g.Close
	case ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		b.Completer = NewOpenAICompleter(s.OpenAIAPIKey, s.OpenAIModel, s.OpenAIBaseURL)
	case ProviderAnthropic:
		if s.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		b.Completer = NewAnthropicCompleter(s.AnthropicAPIKey, s.AnthropicModel)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER: %s (supported: gemini, openai, anthropic)", s.Provider)
	}

	if s.OpenAIAPIKey != "" {
		b.Transcriber = NewWhisperTranscriber(s.OpenAIAPIKey, s.OpenAITranscribeModel, s.OpenAIBaseURL)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, voice messages will not be transcribed")
		b.Transcriber = NoopTranscriber{}
	}

	log.Info().Str("provider", s.Provider).Str("model", b.Completer.Model()).Msg("Language model backend ready")
	return b, nil
}
