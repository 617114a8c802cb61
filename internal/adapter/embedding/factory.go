package embedding

import (
	"fmt"

	"codegraph/config"
	"codegraph/internal/port"
)

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	opts := Options{
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Dimension:      cfg.Dimension,
		Timeout:        cfg.Timeout,
		QueryPrefix:    cfg.QueryPrefix,
		DocumentPrefix: cfg.DocumentPrefix,
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKeyEnv, opts)
	case "ollama":
		return NewOllamaEmbedder(opts), nil
	case "mock":
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
