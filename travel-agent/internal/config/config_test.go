package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(envMap(map[string]string{
		"OPENAI_API_KEY":  "sk-test",
		"NEO4J_URI":       "neo4j+s://example",
		"NEO4J_PASSWORD":  "secret",
		"DATABASE_URL":    "postgres://u:p@db:5432/travel",
		"REDIS_ADDR":      "redis:6379",
		"REDIS_DB":        "2",
		"LLM_MAX_TOKENS":  "not-a-number",
		"EMBEDDING_MODEL": "  ",
		"LOG_LEVEL":       "debug",
	}))
	cfg.resolveProviders()

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "neo4j+s://example", cfg.Graph.URI)
	assert.Equal(t, "secret", cfg.Graph.Password)
	assert.Equal(t, "postgres://u:p@db:5432/travel", cfg.VectorDB.URL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens, "unparsable ints keep the default")
	assert.Equal(t, "all-minilm", cfg.Embedding.Model, "blank values keep the default")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing openai key",
			mutate:  func(c *Config) { c.LLM.APIKey = "" },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "unknown llm provider",
			mutate:  func(c *Config) { c.LLM.Provider = "bard" },
			wantErr: `unknown provider "bard"`,
		},
		{
			name:    "unknown embedding provider",
			mutate:  func(c *Config) { c.Embedding.Provider = "sentence-transformers" },
			wantErr: "embedding: unknown provider",
		},
		{
			name:    "missing neo4j uri",
			mutate:  func(c *Config) { c.Graph.URI = "" },
			wantErr: "NEO4J_URI",
		},
		{
			name:    "unsafe table name",
			mutate:  func(c *Config) { c.VectorDB.Table = "vectors; drop table x" },
			wantErr: "invalid table name",
		},
		{
			name:   "ollama llm needs no key",
			mutate: func(c *Config) { c.LLM.Provider = "ollama"; c.LLM.APIKey = "" },
		},
		{
			name:   "provider names are case-insensitive",
			mutate: func(c *Config) { c.LLM.Provider = "OpenAI"; c.Embedding.Provider = "Ollama" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LLM.APIKey = "sk-test"
			cfg.Graph.URI = "neo4j://localhost:7687"
			tt.mutate(cfg)
			cfg.resolveProviders()
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProviderDefaultsFollowSwitch(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(envMap(map[string]string{
		"EMBEDDING_PROVIDER": "openai",
		"LLM_PROVIDER":       "OLLAMA",
		"OPENAI_API_KEY":     "sk-test",
		"NEO4J_URI":          "neo4j://localhost:7687",
	}))
	cfg.resolveProviders()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Empty(t, cfg.Embedding.BaseURL, "openai uses the SDK endpoint")
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3", cfg.LLM.Model)
}

func TestProviderDefaultsKeepExplicitValues(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(envMap(map[string]string{
		"EMBEDDING_PROVIDER": "openai",
		"EMBEDDING_BASE_URL": "https://gateway.internal/v1",
		"EMBEDDING_MODEL":    "text-embedding-3-large",
		"LLM_MODEL":          "gpt-4.1-mini",
	}))
	cfg.resolveProviders()

	assert.Equal(t, "https://gateway.internal/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.BaseURL)
}

func TestValidateIndex(t *testing.T) {
	cfg := Default()
	cfg.resolveProviders()
	// no OpenAI key and no Neo4j: fine for a vector-only run
	assert.NoError(t, cfg.ValidateIndex(false))
	assert.Error(t, cfg.Validate())

	err := cfg.ValidateIndex(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEO4J_URI")
	assert.NotContains(t, err.Error(), "OPENAI_API_KEY")

	cfg.Embedding.Provider = "openai"
	assert.ErrorContains(t, cfg.ValidateIndex(false), "embedding: OPENAI_API_KEY")
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: ollama
  model: llama3
  base_url: http://ollama:11434
graph:
  uri: neo4j://graph:7687
vectordb:
  table: vietnam_travel
`), 0o600))

	for _, key := range []string{"LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL", "NEO4J_URI", "VECTOR_TABLE", "EMBEDDING_MODEL", "EMBEDDING_PROVIDER", "EMBEDDING_BASE_URL"} {
		t.Setenv(key, "")
	}
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "neo4j://graph:7687", cfg.Graph.URI)
	assert.Equal(t, "vietnam_travel", cfg.VectorDB.Table)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
