package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:ecotone.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "file:ecotone.db", cfg.DatabaseURL)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultInsertBatchSize, cfg.InsertBatchSize)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.LessOrEqual(t, cfg.Workers, cfg.MaxConnections)
}

func TestLoadTuningFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:ecotone.db")

	path := filepath.Join(t.TempDir(), "ecotone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 500\nworkers: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 2, cfg.Workers)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultInsertBatchSize, cfg.InsertBatchSize)
}

func TestLoadRejectsBadTuning(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:ecotone.db")

	path := filepath.Join(t.TempDir(), "ecotone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: -1\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "chunk_size")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:ecotone.db")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWorkersClampedToPool(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:ecotone.db")

	path := filepath.Join(t.TempDir(), "ecotone.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 128\nmax_connections: 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
}
