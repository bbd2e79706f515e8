package ai

import (
	"testing"
)

// TestNewEmbeddingService tests service creation.
func TestNewEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *EmbeddingConfig
		expectError bool
	}{
		{
			name: "SiliconFlow config",
			cfg: &EmbeddingConfig{
				Provider:   "siliconflow",
				Model:      "BAAI/bge-m3",
				Dimensions: 768,
				APIKey:     "test-key",
				BaseURL:    "https://api.siliconflow.cn/v1",
			},
			expectError: false,
		},
		{
			name: "OpenAI config",
			cfg: &EmbeddingConfig{
				Provider:   "openai",
				Model:      "text-embedding-3-small",
				Dimensions: 1536,
				APIKey:     "test-key",
				BaseURL:    "https://api.openai.com/v1",
			},
			expectError: false,
		},
		{
			name: "Unsupported provider",
			cfg: &EmbeddingConfig{
				Provider: "unsupported",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmbeddingService(tt.cfg)
			if (err != nil) != tt.expectError {
				t.Errorf("NewEmbeddingService() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

// TestEmbeddingService_Dimensions tests Dimensions method.
func TestEmbeddingService_Dimensions(t *testing.T) {
	cfg := &EmbeddingConfig{
		Provider:   "siliconflow",
		Model:      "BAAI/bge-m3",
		Dimensions: 768,
		APIKey:     "test-key",
		BaseURL:    "https://api.siliconflow.cn/v1",
	}

	service, err := NewEmbeddingService(cfg)
	if err != nil {
		t.Fatalf("NewEmbeddingService() error = %v", err)
	}
	if got := service.Dimensions(); got != 768 {
		t.Errorf("Dimensions() = %d, want 768", got)
	}
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		expectError bool
	}{
		{
			name:        "Disabled config skips validation",
			cfg:         &Config{Enabled: false},
			expectError: false,
		},
		{
			name: "Valid enabled config",
			cfg: &Config{
				Enabled: true,
				Embedding: EmbeddingConfig{
					Provider:   "openai",
					APIKey:     "test-key",
					Dimensions: 768,
				},
			},
			expectError: false,
		},
		{
			name: "Missing API key",
			cfg: &Config{
				Enabled: true,
				Embedding: EmbeddingConfig{
					Provider:   "openai",
					Dimensions: 768,
				},
			},
			expectError: true,
		},
		{
			name: "Missing dimensions",
			cfg: &Config{
				Enabled: true,
				Embedding: EmbeddingConfig{
					Provider: "openai",
					APIKey:   "test-key",
				},
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}
