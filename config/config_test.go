package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 512, cfg.Index.TokenLimit)
	assert.Equal(t, 50, cfg.Index.Overlap)
	assert.Equal(t, 1.2, cfg.Index.K1)
	assert.Equal(t, 0.75, cfg.Index.B)
	assert.Equal(t, 8, cfg.Retrieve.Limit)
	assert.Equal(t, 60, cfg.Retrieve.RRFK)
	assert.Equal(t, 0.45, cfg.Retrieve.ConfidenceThreshold)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadValidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "codegraph.yaml")
	content := `
index:
  token_limit: 256
  stemming: false
retrieve:
  limit: 10
  cache_ttl: 90s
embedding:
  provider: mock
  timeout: 5s
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Index.TokenLimit)
	assert.False(t, cfg.Index.Stemming)
	assert.Equal(t, 10, cfg.Retrieve.Limit)
	assert.Equal(t, 90*time.Second, cfg.Retrieve.CacheTTL)
	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	// untouched keys keep their defaults
	assert.Equal(t, 50, cfg.Index.Overlap)
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "codegraph.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("index: [unclosed"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureDataDir(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codegraph", "config.yaml"), []byte("retrieve:\n  max_code_chars: 500\n"), 0644))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Retrieve.MaxCodeChars)

	// codegraph.yaml takes precedence
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codegraph.yaml"), []byte("retrieve:\n  max_code_chars: 700\n"), 0644))
	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 700, cfg.Retrieve.MaxCodeChars)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codegraph.yaml")
	cfg := DefaultConfig()
	cfg.Index.ChunkMode = "window"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"overlap equals limit", func(c *Config) { c.Index.Overlap = c.Index.TokenLimit }, domain.ErrInvalidOverlap},
		{"overlap above limit", func(c *Config) { c.Index.Overlap = 600 }, domain.ErrInvalidOverlap},
		{"negative overlap", func(c *Config) { c.Index.Overlap = -1 }, domain.ErrInvalidOverlap},
		{"bad chunk mode", func(c *Config) { c.Index.ChunkMode = "lines" }, nil},
		{"lambda out of range", func(c *Config) { c.Retrieve.MMRLambda = 1.5 }, nil},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, nil},
		{"zero batch", func(c *Config) { c.Embedding.BatchSize = 0 }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestIndexDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/home/user/project", ".codegraph", "index.db"), IndexDBPath("/home/user/project"))
}
