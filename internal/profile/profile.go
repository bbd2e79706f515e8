package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the engine server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where leafmark stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Embedding provider configuration
	EmbeddingProvider   string // LEAFMARK_EMBEDDING_PROVIDER (openai or siliconflow)
	EmbeddingAPIKey     string // LEAFMARK_EMBEDDING_API_KEY
	EmbeddingBaseURL    string // LEAFMARK_EMBEDDING_BASE_URL
	EmbeddingModel      string // LEAFMARK_EMBEDDING_MODEL (default: BAAI/bge-m3)
	EmbeddingDimensions int    // LEAFMARK_EMBEDDING_DIMENSIONS (default: 768)

	// Worker configuration
	WorkerInterval    time.Duration // LEAFMARK_WORKER_INTERVAL (default: 1m)
	WorkerConcurrency int           // LEAFMARK_WORKER_CONCURRENCY (default: 4)
	WorkerBatchSize   int           // LEAFMARK_WORKER_BATCH_SIZE (default: 8)
	LeaseTTL          time.Duration // LEAFMARK_LEASE_TTL (default: 10m)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true if an embedding provider is configured.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// FromEnv loads configuration from LEAFMARK_* environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("LEAFMARK_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingAPIKey = os.Getenv("LEAFMARK_EMBEDDING_API_KEY")
	p.EmbeddingBaseURL = getEnvOrDefault("LEAFMARK_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")
	p.EmbeddingModel = getEnvOrDefault("LEAFMARK_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingDimensions = getIntEnvOrDefault("LEAFMARK_EMBEDDING_DIMENSIONS", 768)

	p.WorkerInterval = getDurationEnvOrDefault("LEAFMARK_WORKER_INTERVAL", time.Minute)
	p.WorkerConcurrency = getIntEnvOrDefault("LEAFMARK_WORKER_CONCURRENCY", 4)
	p.WorkerBatchSize = getIntEnvOrDefault("LEAFMARK_WORKER_BATCH_SIZE", 8)
	p.LeaseTTL = getDurationEnvOrDefault("LEAFMARK_LEASE_TTL", 10*time.Minute)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "leafmark")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/leafmark"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("leafmark_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}

	if p.WorkerConcurrency <= 0 {
		p.WorkerConcurrency = 4
	}
	if p.WorkerBatchSize <= 0 {
		p.WorkerBatchSize = 8
	}

	return nil
}
