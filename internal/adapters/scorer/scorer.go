// Package scorer provides the essay scoring providers. Gemini and OpenAI
// call out to their respective APIs; the deterministic fallback serves when
// no API key is configured so submissions always complete.
package scorer

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Provider names accepted by FromOptions.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderFallback = "fallback"
)

// Scorer produces a raw evaluation payload for an essay. The payload is
// provider JSON text; validation and repair happen downstream.
type Scorer interface {
	Name() string
	Score(ctx context.Context, taskPrompt, essayText string) ([]byte, error)
}

// Options selects and configures a scoring provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// FromOptions builds the scorer for the configured provider. A blank API key
// or an unrecognized provider name falls back to the deterministic scorer
// with a warning rather than an error.
func FromOptions(opts Options) (Scorer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		logger.Warn("no scorer api key set, using fallback evaluation")
		return NewFallback(), nil
	}

	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	switch provider {
	case ProviderGemini:
		return NewGemini(GeminiConfig{
			APIKey:  apiKey,
			Model:   opts.Model,
			Timeout: opts.Timeout,
		})
	case ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:  apiKey,
			Model:   opts.Model,
			Timeout: opts.Timeout,
		})
	default:
		logger.Warn("unknown scorer provider, using fallback evaluation",
			slog.String("provider", provider))
		return NewFallback(), nil
	}
}
