// Package config loads dockhand configuration from a YAML file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given
const DefaultPath = "config.yaml"

// Embedding providers
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config is the complete dockhand configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Golden    GoldenConfig    `yaml:"golden"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// OpenAIConfig configures the OpenAI client
type OpenAIConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	Temperature    float32 `yaml:"temperature"`
}

// EmbeddingConfig selects the embedding provider and its retry policy
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"`
	Dimension      int           `yaml:"dimension"` // hash provider only
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// RetrievalConfig tunes multi-query retrieval
type RetrievalConfig struct {
	PerQueryK  int `yaml:"per_query_k"`
	TopK       int `yaml:"top_k"`
	MaxQueries int `yaml:"max_queries"`
}

// GoldenConfig tunes the golden answer cache
type GoldenConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// AnalysisConfig tunes gap analysis
type AnalysisConfig struct {
	Lookback      time.Duration `yaml:"lookback"`
	LowSimilarity float64       `yaml:"low_similarity"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "dockhand.db"},
		OpenAI: OpenAIConfig{
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
			Temperature:    0.2,
		},
		Embedding: EmbeddingConfig{
			Provider:       ProviderOpenAI,
			Dimension:      256,
			MaxRetries:     3,
			RetryBaseDelay: 500 * time.Millisecond,
		},
		Retrieval: RetrievalConfig{
			PerQueryK:  8,
			TopK:       10,
			MaxQueries: 4,
		},
		Golden: GoldenConfig{Threshold: 0.92},
		Analysis: AnalysisConfig{
			Lookback:      7 * 24 * time.Hour,
			LowSimilarity: 0.35,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies .env and environment
// overrides. A missing file at DefaultPath is not an error; a missing file
// that was asked for explicitly is.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := os.Getenv("DOCKHAND_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DOCKHAND_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DOCKHAND_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DOCKHAND_EMBEDDER"); v != "" {
		c.Embedding.Provider = strings.ToLower(v)
	}
}

// Validate checks the configuration for values the components cannot use
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("openai.api_key (or OPENAI_API_KEY) is required for the openai embedder"))
		}
	case ProviderHash:
		if c.Embedding.Dimension <= 0 {
			errs = append(errs, fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}

	if c.Retrieval.PerQueryK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.per_query_k must be positive, got %d", c.Retrieval.PerQueryK))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK))
	}
	if c.Retrieval.MaxQueries <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.max_queries must be positive, got %d", c.Retrieval.MaxQueries))
	}
	if c.Golden.Threshold <= 0 || c.Golden.Threshold > 1 {
		errs = append(errs, fmt.Errorf("golden.threshold must be in (0, 1], got %v", c.Golden.Threshold))
	}
	if c.Analysis.LowSimilarity <= 0 || c.Analysis.LowSimilarity > 1 {
		errs = append(errs, fmt.Errorf("analysis.low_similarity must be in (0, 1], got %v", c.Analysis.LowSimilarity))
	}
	if c.Analysis.Lookback <= 0 {
		errs = append(errs, fmt.Errorf("analysis.lookback must be positive, got %s", c.Analysis.Lookback))
	}

	return errors.Join(errs...)
}
