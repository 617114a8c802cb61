package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/config"
	"codegraph/internal/domain"
	"codegraph/internal/usecase"
)

func mockConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimension = 16
	return cfg
}

func TestOpenWithoutIndex(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(mockConfig(), dir, false)
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)

	_, statErr := os.Stat(filepath.Dir(config.IndexDBPath(dir)))
	assert.True(t, os.IsNotExist(statErr), "read path must not create the data directory")
}

func TestOpenRejectsIndexFromOtherConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.py"),
		[]byte("def total(items):\n    return sum(items)\n"), 0o644))
	cfg := mockConfig()

	a, err := Open(cfg, dir, true)
	require.NoError(t, err)
	indexer, err := a.Indexer()
	require.NoError(t, err)
	_, err = indexer.Index(context.Background(), dir, nil)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = Open(cfg, dir, false)
	require.NoError(t, err)
	assert.Equal(t, usecase.StatusReady, a.Asker().Health().Status)
	require.NoError(t, a.Close())

	changed := *cfg
	changed.Embedding.Dimension = 32
	_, err = Open(&changed, dir, false)
	require.ErrorIs(t, err, domain.ErrIndexNotReady)
	assert.Contains(t, err.Error(), "index configuration changed")

	// the rejected open left the index intact
	a, err = Open(cfg, dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Asker().Health().Stats.TotalFiles)
	require.NoError(t, a.Close())

	// indexing under the new config clears it
	a, err = Open(&changed, dir, true)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, usecase.StatusNotReady, a.Asker().Health().Status)
}
