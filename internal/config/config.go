// Package config provides configuration management for graphmem.
// Settings come from an optional YAML file plus environment variables with
// the GRAPHMEM_ prefix; environment variables take precedence over the file,
// and every option has a sensible default.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for graphmem.
type Config struct {
	Graph GraphConfig `yaml:"graph"`
	LLM   LLMConfig   `yaml:"llm"`
}

// GraphConfig selects and configures the storage backend.
type GraphConfig struct {
	// Backend is the storage backend: dgraph, neo4j, or postgres
	// (default: dgraph).
	Backend string `yaml:"backend"`

	// DgraphTarget is the Dgraph alpha gRPC address (default: localhost:9080).
	DgraphTarget string `yaml:"dgraph_target"`

	// Neo4jURI, Neo4jUsername, Neo4jPassword configure the Neo4j driver.
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUsername string `yaml:"neo4j_username"`
	Neo4jPassword string `yaml:"neo4j_password"`

	// PostgresDSN is the PostgreSQL connection string.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDim sizes vector indexes and columns. Must match the
	// embedding model (default: 1536).
	EmbeddingDim int `yaml:"embedding_dim"`
}

// LLMConfig contains model provider configuration.
type LLMConfig struct {
	// Provider is the text model provider: ollama, openai, anthropic
	// (default: ollama).
	Provider string `yaml:"provider"`

	// APIKey authenticates against hosted providers.
	APIKey string `yaml:"api_key"`

	// Model overrides the provider's default generation model.
	Model string `yaml:"model"`

	// EmbeddingModel overrides the provider's default embedding model.
	EmbeddingModel string `yaml:"embedding_model"`

	// BaseURL overrides the provider endpoint (e.g. an Ollama host).
	BaseURL string `yaml:"base_url"`

	// MaxCallsPerSecond rate-limits model calls across the pipeline.
	// Zero disables limiting.
	MaxCallsPerSecond float64 `yaml:"max_calls_per_second"`
}

// LoadConfig loads configuration from the file at path (when path is
// non-empty) and then overlays GRAPHMEM_ environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	cfg.overlayEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) overlayEnv() {
	setEnvString(&c.Graph.Backend, "GRAPHMEM_BACKEND")
	setEnvString(&c.Graph.DgraphTarget, "GRAPHMEM_DGRAPH_TARGET")
	setEnvString(&c.Graph.Neo4jURI, "GRAPHMEM_NEO4J_URI")
	setEnvString(&c.Graph.Neo4jUsername, "GRAPHMEM_NEO4J_USERNAME")
	setEnvString(&c.Graph.Neo4jPassword, "GRAPHMEM_NEO4J_PASSWORD")
	setEnvString(&c.Graph.PostgresDSN, "GRAPHMEM_POSTGRES_DSN")
	setEnvInt(&c.Graph.EmbeddingDim, "GRAPHMEM_EMBEDDING_DIM")

	setEnvString(&c.LLM.Provider, "GRAPHMEM_LLM_PROVIDER")
	setEnvString(&c.LLM.APIKey, "GRAPHMEM_API_KEY")
	setEnvString(&c.LLM.Model, "GRAPHMEM_MODEL")
	setEnvString(&c.LLM.EmbeddingModel, "GRAPHMEM_EMBEDDING_MODEL")
	setEnvString(&c.LLM.BaseURL, "GRAPHMEM_BASE_URL")
	setEnvFloat(&c.LLM.MaxCallsPerSecond, "GRAPHMEM_MAX_CALLS_PER_SECOND")
}

func (c *Config) applyDefaults() {
	if c.Graph.Backend == "" {
		c.Graph.Backend = "dgraph"
	}
	if c.Graph.DgraphTarget == "" {
		c.Graph.DgraphTarget = "localhost:9080"
	}
	if c.Graph.Neo4jURI == "" {
		c.Graph.Neo4jURI = "bolt://localhost:7687"
	}
	if c.Graph.Neo4jUsername == "" {
		c.Graph.Neo4jUsername = "neo4j"
	}
	if c.Graph.EmbeddingDim == 0 {
		c.Graph.EmbeddingDim = 1536
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
}

// setEnvString overwrites dst when the environment variable is set and
// non-empty.
func setEnvString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

// setEnvInt overwrites dst when the environment variable parses as an
// integer. Unparseable values are ignored.
func setEnvInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = n
		}
	}
}

// setEnvFloat overwrites dst when the environment variable parses as a
// float. Unparseable values are ignored.
func setEnvFloat(dst *float64, key string) {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = f
		}
	}
}
