package llm

import (
	"fmt"

	"golang.org/x/time/rate"
)

// ProviderConfig selects and configures the model provider. The choice is
// made once at process start and the resulting clients are injected into the
// pipelines explicitly; nothing reads provider state from globals.
type ProviderConfig struct {
	Provider       string // openai, anthropic, ollama (default: ollama)
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string

	// MaxCallsPerSecond caps model-call pressure across all extractors.
	// Zero means unthrottled.
	MaxCallsPerSecond float64
}

// NewTextGenerator creates the completion client for the configured provider.
func NewTextGenerator(cfg ProviderConfig) (TextGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator creates the embedding client for the configured
// provider. Anthropic has no embeddings endpoint, so it falls back to a
// local Ollama embedding model.
func NewEmbeddingGenerator(cfg ProviderConfig) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbeddingClient(OpenAIConfig{APIKey: cfg.APIKey, EmbeddingModel: cfg.EmbeddingModel, BaseURL: cfg.BaseURL}), nil
	case "anthropic":
		return NewOllamaClient(OllamaConfig{EmbeddingModel: cfg.EmbeddingModel}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, EmbeddingModel: cfg.EmbeddingModel}), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// NewLimiter builds the shared model-call limiter from the configured rate.
// Returns nil (unthrottled) when the rate is non-positive.
func NewLimiter(cfg ProviderConfig) *rate.Limiter {
	if cfg.MaxCallsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.MaxCallsPerSecond), 1)
}
