package embedder

import (
	"fmt"

	"github.com/bowerhall/chorus/pkg/journalmem"
)

type Config struct {
	Provider string
	BaseURL  string
	Model    string
}

// New returns a journalmem.Embedder, or nil when no provider is configured
// (the store works without one; entries just carry no vectors).
func New(cfg Config) (journalmem.Embedder, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "nomic-embed-text"
		}
		return newOllama(baseURL, model), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedder provider: %s", cfg.Provider)
	}
}
