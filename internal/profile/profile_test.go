package profile

import (
	"os"
	"testing"
	"time"
)

func TestProfileDefaults(t *testing.T) {
	clearEngineEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"EmbeddingProvider default", "siliconflow", profile.EmbeddingProvider},
		{"EmbeddingBaseURL default", "https://api.siliconflow.cn/v1", profile.EmbeddingBaseURL},
		{"EmbeddingModel default", "BAAI/bge-m3", profile.EmbeddingModel},
		{"EmbeddingAPIKey empty by default", "", profile.EmbeddingAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.EmbeddingDimensions != 768 {
		t.Errorf("EmbeddingDimensions: expected 768, got %d", profile.EmbeddingDimensions)
	}
	if profile.WorkerInterval != time.Minute {
		t.Errorf("WorkerInterval: expected 1m, got %s", profile.WorkerInterval)
	}
	if profile.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency: expected 4, got %d", profile.WorkerConcurrency)
	}
	if profile.LeaseTTL != 10*time.Minute {
		t.Errorf("LeaseTTL: expected 10m, got %s", profile.LeaseTTL)
	}
}

func TestProfileFromEnv(t *testing.T) {
	clearEngineEnvVars()

	os.Setenv("LEAFMARK_EMBEDDING_PROVIDER", "openai")
	os.Setenv("LEAFMARK_EMBEDDING_API_KEY", "test-key-123")
	os.Setenv("LEAFMARK_EMBEDDING_BASE_URL", "https://custom.openai.proxy/v1")
	os.Setenv("LEAFMARK_EMBEDDING_DIMENSIONS", "1024")
	os.Setenv("LEAFMARK_WORKER_CONCURRENCY", "8")
	os.Setenv("LEAFMARK_LEASE_TTL", "5m")
	defer clearEngineEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	if profile.EmbeddingProvider != "openai" {
		t.Errorf("EmbeddingProvider: expected openai, got %q", profile.EmbeddingProvider)
	}
	if profile.EmbeddingAPIKey != "test-key-123" {
		t.Errorf("EmbeddingAPIKey: expected test-key-123, got %q", profile.EmbeddingAPIKey)
	}
	if profile.EmbeddingBaseURL != "https://custom.openai.proxy/v1" {
		t.Errorf("EmbeddingBaseURL: expected custom proxy, got %q", profile.EmbeddingBaseURL)
	}
	if profile.EmbeddingDimensions != 1024 {
		t.Errorf("EmbeddingDimensions: expected 1024, got %d", profile.EmbeddingDimensions)
	}
	if profile.WorkerConcurrency != 8 {
		t.Errorf("WorkerConcurrency: expected 8, got %d", profile.WorkerConcurrency)
	}
	if profile.LeaseTTL != 5*time.Minute {
		t.Errorf("LeaseTTL: expected 5m, got %s", profile.LeaseTTL)
	}

	if !profile.IsEmbeddingEnabled() {
		t.Error("IsEmbeddingEnabled: expected true when API key is set")
	}
}

func TestProfileInvalidEnvValuesFallBack(t *testing.T) {
	clearEngineEnvVars()

	os.Setenv("LEAFMARK_EMBEDDING_DIMENSIONS", "not-a-number")
	os.Setenv("LEAFMARK_WORKER_INTERVAL", "not-a-duration")
	defer clearEngineEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	if profile.EmbeddingDimensions != 768 {
		t.Errorf("EmbeddingDimensions: expected fallback 768, got %d", profile.EmbeddingDimensions)
	}
	if profile.WorkerInterval != time.Minute {
		t.Errorf("WorkerInterval: expected fallback 1m, got %s", profile.WorkerInterval)
	}
}

func clearEngineEnvVars() {
	vars := []string{
		"LEAFMARK_EMBEDDING_PROVIDER",
		"LEAFMARK_EMBEDDING_API_KEY",
		"LEAFMARK_EMBEDDING_BASE_URL",
		"LEAFMARK_EMBEDDING_MODEL",
		"LEAFMARK_EMBEDDING_DIMENSIONS",
		"LEAFMARK_WORKER_INTERVAL",
		"LEAFMARK_WORKER_CONCURRENCY",
		"LEAFMARK_WORKER_BATCH_SIZE",
		"LEAFMARK_LEASE_TTL",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
