package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"codegraph/internal/domain"
)

const dataDir = ".codegraph"

// Config holds all configuration for codegraph.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig controls discovery, segmentation and lexical scoring.
type IndexConfig struct {
	Includes         []string `yaml:"includes"`
	Excludes         []string `yaml:"excludes"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	Stemming         bool     `yaml:"stemming"`
	TokenLimit       int      `yaml:"token_limit"`
	Overlap          int      `yaml:"overlap"`
	ChunkMode        string   `yaml:"chunk_mode"` // "definitions" or "window"
	Workers          int      `yaml:"workers"`    // 0 means one per CPU
	K1               float64  `yaml:"k1"`
	B                float64  `yaml:"b"`
}

// RetrieveConfig controls the retrieval engine.
type RetrieveConfig struct {
	Limit               int           `yaml:"limit"`
	OversampleFactor    int           `yaml:"oversample_factor"`
	MMRLambda           float64       `yaml:"mmr_lambda"`
	RRFK                int           `yaml:"rrf_k"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"` // distance above which results are low confidence
	HybridEnabled       bool          `yaml:"hybrid_enabled"`
	MaxRelated          int           `yaml:"max_related"`
	MaxRelationships    int           `yaml:"max_relationships"`
	MaxCodeChars        int           `yaml:"max_code_chars"`
	CacheSize           int           `yaml:"cache_size"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig holds embedding gateway configuration.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"` // "openai", "ollama", "mock"
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	Dimension      int           `yaml:"dimension"`
	BatchSize      int           `yaml:"batch_size"`
	Concurrency    int           `yaml:"concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	QueryPrefix    string        `yaml:"query_prefix"`
	DocumentPrefix string        `yaml:"document_prefix"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:         []string{"**/*.py", "**/*.go", "**/*.js", "**/*.mjs", "**/*.cjs", "**/*.jsx"},
			Excludes:         []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**", "**/__pycache__/**", "**/*.min.js", "**/.codegraph/**"},
			RespectGitignore: true,
			Stemming:         true,
			TokenLimit:       512,
			Overlap:          50,
			ChunkMode:        "definitions",
			K1:               1.2,
			B:                0.75,
		},
		Retrieve: RetrieveConfig{
			Limit:               8,
			OversampleFactor:    4,
			MMRLambda:           0.7,
			RRFK:                60,
			ConfidenceThreshold: 0.45,
			HybridEnabled:       true,
			MaxRelated:          5,
			MaxRelationships:    10,
			MaxCodeChars:        3000,
			CacheSize:           128,
			CacheTTL:            5 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			Model:          "nomic-embed-text",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      768,
			BatchSize:      64,
			Concurrency:    4,
			Timeout:        30 * time.Second,
			QueryPrefix:    "search_query: ",
			DocumentPrefix: "search_document: ",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Index.TokenLimit <= 0 {
		return fmt.Errorf("index.token_limit must be positive, got %d", c.Index.TokenLimit)
	}
	if c.Index.Overlap < 0 || c.Index.Overlap >= c.Index.TokenLimit {
		return fmt.Errorf("%w: index.overlap %d must be in [0, %d)", domain.ErrInvalidOverlap, c.Index.Overlap, c.Index.TokenLimit)
	}
	switch c.Index.ChunkMode {
	case "definitions", "window":
	default:
		return fmt.Errorf("index.chunk_mode must be definitions or window, got %q", c.Index.ChunkMode)
	}
	if c.Retrieve.MMRLambda < 0 || c.Retrieve.MMRLambda > 1 {
		return fmt.Errorf("retrieve.mmr_lambda must be in [0, 1], got %g", c.Retrieve.MMRLambda)
	}
	if c.Retrieve.Limit <= 0 || c.Retrieve.OversampleFactor <= 0 {
		return fmt.Errorf("retrieve.limit and retrieve.oversample_factor must be positive")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	return nil
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir looks for codegraph.yaml, then .codegraph/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	for _, path := range []string{
		filepath.Join(dir, "codegraph.yaml"),
		filepath.Join(dir, dataDir, "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, dataDir, "index.db")
}

// EnsureDataDir creates the .codegraph directory.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, dataDir), 0755)
}
