package ai

import (
	"errors"

	"github.com/leafmark/leafmark/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	Embedding EmbeddingConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // siliconflow, openai
	Model      string // BAAI/bge-m3
	Dimensions int    // 768
	APIKey     string
	BaseURL    string

	// RequestsPerSecond throttles calls to the provider. Zero disables
	// throttling.
	RequestsPerSecond float64
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsEmbeddingEnabled(),
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:          p.EmbeddingProvider,
		Model:             p.EmbeddingModel,
		Dimensions:        p.EmbeddingDimensions,
		APIKey:            p.EmbeddingAPIKey,
		BaseURL:           p.EmbeddingBaseURL,
		RequestsPerSecond: 5,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}

	return nil
}
