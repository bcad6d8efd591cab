// Package profile holds the runtime configuration for the engine, loaded
// from LECTERN_* environment variables.
package profile

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration for the retrieval and generation engine.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Data is the data directory
	Data string
	// Version is the current version of the engine
	Version string

	// Embedding configuration
	EmbeddingProvider string // LECTERN_EMBEDDING_PROVIDER (default: openai)
	EmbeddingModel    string // LECTERN_EMBEDDING_MODEL (default: text-embedding-3-small)
	EmbeddingAPIKey   string // LECTERN_EMBEDDING_API_KEY
	EmbeddingBaseURL  string // LECTERN_EMBEDDING_BASE_URL (default: https://api.openai.com/v1)

	// LLM configuration
	LLMProvider   string // LECTERN_LLM_PROVIDER ("openai" or "ollama", default: openai)
	LLMModel      string // LECTERN_LLM_MODEL (default: gpt-4o-mini)
	LLMAPIKey     string // LECTERN_LLM_API_KEY
	LLMBaseURL    string // LECTERN_LLM_BASE_URL
	OllamaBaseURL string // LECTERN_OLLAMA_BASE_URL (default: http://localhost:11434)

	// Chunking configuration
	ChunkSize    int // LECTERN_CHUNK_SIZE (default: 800)
	ChunkOverlap int // LECTERN_CHUNK_OVERLAP (default: 200)
}

// IsDev returns true unless running in prod mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// StoreDir returns the vector store directory under the data directory.
func (p *Profile) StoreDir() string {
	return filepath.Join(p.Data, "vector_store")
}

// MemoryDir returns the conversation memory directory under the data directory.
func (p *Profile) MemoryDir() string {
	return filepath.Join(p.Data, "memory")
}

// FromEnv loads configuration from LECTERN_* environment variables,
// applying defaults for unset values.
func (p *Profile) FromEnv() {
	v := viper.New()
	v.SetEnvPrefix("lectern")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "prod")
	v.SetDefault("data", "data")
	v.SetDefault("embedding_provider", "openai")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("embedding_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm_provider", "openai")
	v.SetDefault("llm_model", "gpt-4o-mini")
	v.SetDefault("ollama_base_url", "http://localhost:11434")
	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 200)

	p.Mode = v.GetString("mode")
	p.Data = v.GetString("data")
	p.EmbeddingProvider = v.GetString("embedding_provider")
	p.EmbeddingModel = v.GetString("embedding_model")
	p.EmbeddingAPIKey = v.GetString("embedding_api_key")
	p.EmbeddingBaseURL = v.GetString("embedding_base_url")
	p.LLMProvider = v.GetString("llm_provider")
	p.LLMModel = v.GetString("llm_model")
	p.LLMAPIKey = v.GetString("llm_api_key")
	p.LLMBaseURL = v.GetString("llm_base_url")
	p.OllamaBaseURL = v.GetString("ollama_base_url")
	p.ChunkSize = v.GetInt("chunk_size")
	p.ChunkOverlap = v.GetInt("chunk_overlap")
}

// Validate checks the profile for invalid combinations.
func (p *Profile) Validate() error {
	if p.ChunkSize <= 0 {
		return errors.Errorf("invalid chunk size: %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 {
		return errors.Errorf("invalid chunk overlap: %d", p.ChunkOverlap)
	}
	switch p.LLMProvider {
	case "openai", "ollama":
	default:
		return errors.Errorf("unsupported LLM provider: %s", p.LLMProvider)
	}
	return nil
}
