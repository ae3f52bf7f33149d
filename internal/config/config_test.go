package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  connection_string: "postgres://localhost/db"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, "postgres", cfg.Vector.Backend)
	assert.Equal(t, "cosine", cfg.Vector.Metric)
	assert.Equal(t, "FAILOVER", cfg.Pool.Strategy)
	assert.Equal(t, 3, cfg.Pool.MaxRetries)
	assert.Equal(t, 4, cfg.Ingestion.Workers)
	assert.Equal(t, 10, cfg.Ingestion.BatchSize)
	assert.Equal(t, 1000, cfg.Ingestion.DefaultChunkSize)
	assert.InDelta(t, 0.02, cfg.Ingestion.OversizeThresholdPct, 1e-9)
	assert.Equal(t, 3600, cfg.Ingestion.StatusTTLSeconds)
	assert.Equal(t, 60, cfg.Retrieval.RRFConstant)
	assert.InDelta(t, 0.6, cfg.Retrieval.DefaultSemantic, 1e-9)
	assert.InDelta(t, 0.4, cfg.Retrieval.DefaultTextual, 1e-9)
	assert.Equal(t, 20, cfg.Retrieval.MaxResultsDefault)
	assert.Equal(t, "jsimplerag", cfg.OTel.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 1536, cfg.Defaults.EmbeddingDim)
}

func TestLoadConfig_ExplicitValuesOverrideDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  connection_string: "postgres://localhost/db"
  max_conns: 20
vector:
  backend: qdrant
  metric: l2
pool:
  strategy: ROUND_ROBIN
  max_retries: 5
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, "qdrant", cfg.Vector.Backend)
	assert.Equal(t, "l2", cfg.Vector.Metric)
	assert.Equal(t, "ROUND_ROBIN", cfg.Pool.Strategy)
	assert.Equal(t, 5, cfg.Pool.MaxRetries)
}

func TestLoadConfig_EnvOverridesTakePrecedence(t *testing.T) {
	path := writeConfig(t, `
database:
  connection_string: "postgres://localhost/db"
ingestion:
  workers: 2
`)
	t.Setenv("DATABASE_URL", "postgres://from-env/db")
	t.Setenv("INGESTION_WORKERS", "16")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://from-env/db", cfg.Database.ConnectionString)
	assert.Equal(t, 16, cfg.Ingestion.Workers)
}

func TestLoadConfig_MissingFileErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
