package config

import (
	"fmt"
	"os"
	"strings"
)

func Load() (*Config, error) {
	essencePath := os.Getenv("CHORUS_ESSENCE")
	if essencePath == "" {
		essencePath = "essence"
	}

	memoryPath := os.Getenv("CHORUS_MEMORY")
	if memoryPath == "" {
		memoryPath = "chorus.db"
	}

	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}

	llmConfig, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	distillerConfig, err := loadDistillerConfig()
	if err != nil {
		return nil, err
	}

	embedderConfig := loadEmbedderConfig()

	return &Config{
		EssencePath: essencePath,
		MemoryPath:  memoryPath,
		Timezone:    timezone,
		LLM:         llmConfig,
		Distiller:   distillerConfig,
		Embedder:    embedderConfig,
	}, nil
}

func loadEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		Provider: os.Getenv("EMBEDDER_PROVIDER"),
		BaseURL:  os.Getenv("EMBEDDER_URL"),
		Model:    os.Getenv("EMBEDDER_MODEL"),
	}
}

func loadLLMConfig() (LLMConfig, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "claude"
	}

	apiKey, err := getAPIKey(provider, "LLM")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    os.Getenv("LLM_MODEL"),
		BaseURL:  os.Getenv("LLM_BASE_URL"),
	}, nil
}

// The distiller is a separate, usually cheaper model that compresses each
// exchange into a journal entry. Defaults to the main LLM settings.
func loadDistillerConfig() (LLMConfig, error) {
	provider := os.Getenv("DISTILLER_PROVIDER")
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = "claude"
	}

	apiKey, err := getAPIKey(provider, "DISTILLER")
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    os.Getenv("DISTILLER_MODEL"),
		BaseURL:  os.Getenv("DISTILLER_BASE_URL"),
	}, nil
}

func getAPIKey(provider, prefix string) (string, error) {
	envKey := os.Getenv(prefix + "_API_KEY")
	if envKey != "" {
		return envKey, nil
	}

	switch provider {
	case "claude":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		return key, nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return "", fmt.Errorf("OPENAI_API_KEY not set")
		}
		return key, nil
	case "kimi":
		key := os.Getenv("KIMI_API_KEY")
		if key == "" {
			return "", fmt.Errorf("KIMI_API_KEY not set")
		}
		return key, nil
	case "ollama":
		// Ollama doesn't need an API key
		return "ollama", nil
	default:
		// convention: {PROVIDER}_API_KEY (e.g. GROQ_API_KEY, MISTRAL_API_KEY)
		envName := strings.ToUpper(provider) + "_API_KEY"
		key := os.Getenv(envName)
		if key == "" {
			return "", fmt.Errorf("%s not set", envName)
		}
		return key, nil
	}
}
