package config

type Config struct {
	EssencePath string
	MemoryPath  string
	Timezone    string
	LLM         LLMConfig
	Distiller   LLMConfig
	Embedder    EmbedderConfig
}

type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

type EmbedderConfig struct {
	Provider string
	BaseURL  string
	Model    string
}
