package ai

import (
	"github.com/lectern/lectern/internal/profile"
)

// Config represents AI backend configuration.
type Config struct {
	Embedding EmbeddingConfig
	LLM       LLMConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider string // openai (or any OpenAI-compatible endpoint)
	Model    string // text-embedding-3-small
	APIKey   string
	BaseURL  string
}

// LLMConfig represents generation backend configuration.
type LLMConfig struct {
	Provider    string // openai, ollama
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 800
	Temperature float32 // default: 0.2
}

// NewConfigFromProfile creates AI config from the runtime profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Embedding: EmbeddingConfig{
			Provider: p.EmbeddingProvider,
			Model:    p.EmbeddingModel,
			APIKey:   p.EmbeddingAPIKey,
			BaseURL:  p.EmbeddingBaseURL,
		},
		LLM: LLMConfig{
			Provider:    p.LLMProvider,
			Model:       p.LLMModel,
			APIKey:      p.LLMAPIKey,
			MaxTokens:   800,
			Temperature: 0.2,
		},
	}

	switch p.LLMProvider {
	case "ollama":
		cfg.LLM.BaseURL = p.OllamaBaseURL
		if cfg.LLM.Model == "" || cfg.LLM.Model == "gpt-4o-mini" {
			cfg.LLM.Model = "llama3.1:8b"
		}
	default:
		cfg.LLM.BaseURL = p.LLMBaseURL
	}

	return cfg
}
