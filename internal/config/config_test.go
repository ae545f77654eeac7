package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "dgraph", cfg.Graph.Backend)
	assert.Equal(t, "localhost:9080", cfg.Graph.DgraphTarget)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.Neo4jURI)
	assert.Equal(t, "neo4j", cfg.Graph.Neo4jUsername)
	assert.Equal(t, 1536, cfg.Graph.EmbeddingDim)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Zero(t, cfg.LLM.MaxCallsPerSecond)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphmem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
graph:
  backend: neo4j
  neo4j_uri: bolt://graph.internal:7687
  embedding_dim: 768
llm:
  provider: openai
  model: gpt-4o
  max_calls_per_second: 2.5
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "neo4j", cfg.Graph.Backend)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Graph.Neo4jURI)
	assert.Equal(t, 768, cfg.Graph.EmbeddingDim)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.InDelta(t, 2.5, cfg.LLM.MaxCallsPerSecond, 1e-9)

	// Unset options still get defaults.
	assert.Equal(t, "localhost:9080", cfg.Graph.DgraphTarget)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphmem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  backend: neo4j\n"), 0o600))

	t.Setenv("GRAPHMEM_BACKEND", "postgres")
	t.Setenv("GRAPHMEM_POSTGRES_DSN", "postgres://localhost/graphmem?sslmode=disable")
	t.Setenv("GRAPHMEM_EMBEDDING_DIM", "384")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Graph.Backend)
	assert.Equal(t, "postgres://localhost/graphmem?sslmode=disable", cfg.Graph.PostgresDSN)
	assert.Equal(t, 384, cfg.Graph.EmbeddingDim)
}

func TestLoadConfigBadEnvValuesIgnored(t *testing.T) {
	t.Setenv("GRAPHMEM_EMBEDDING_DIM", "not-a-number")
	t.Setenv("GRAPHMEM_MAX_CALLS_PER_SECOND", "fast")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 1536, cfg.Graph.EmbeddingDim)
	assert.Zero(t, cfg.LLM.MaxCallsPerSecond)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph: [not a mapping"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
