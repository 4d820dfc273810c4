package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "DOCKHAND_DB", "DOCKHAND_ADDR", "DOCKHAND_LOG_LEVEL", "DOCKHAND_EMBEDDER"} {
		t.Setenv(k, "")
	}
	// Keep godotenv away from any .env in the package directory
	t.Chdir(t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  path: /var/lib/dockhand/db.sqlite
openai:
  api_key: sk-file
  chat_model: gpt-4o
embedding:
  retry_base_delay: 2s
retrieval:
  top_k: 5
golden:
  threshold: 0.95
analysis:
  lookback: 48h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dockhand/db.sqlite", cfg.Database.Path)
	assert.Equal(t, "sk-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel, "default kept")
	assert.Equal(t, 2*time.Second, cfg.Embedding.RetryBaseDelay)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 8, cfg.Retrieval.PerQueryK)
	assert.Equal(t, 0.95, cfg.Golden.Threshold)
	assert.Equal(t, 48*time.Hour, cfg.Analysis.Lookback)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "openai:\n  api_key: sk-file\n")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DOCKHAND_DB", "env.db")
	t.Setenv("DOCKHAND_ADDR", ":9999")
	t.Setenv("DOCKHAND_EMBEDDER", "HASH")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, ProviderHash, cfg.Embedding.Provider)
}

func TestMissingDefaultFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCKHAND_EMBEDDER", "hash")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Retrieval, cfg.Retrieval)
	assert.Equal(t, 0.92, cfg.Golden.Threshold)
}

func TestMissingExplicitFileFails(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err, "openai provider without key")
	assert.Contains(t, err.Error(), "api_key")

	cfg.OpenAI.APIKey = "sk"
	require.NoError(t, cfg.Validate())

	cfg.Golden.Threshold = 1.5
	cfg.Retrieval.TopK = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "golden.threshold")
	assert.Contains(t, err.Error(), "retrieval.top_k")

	cfg = Default()
	cfg.Embedding.Provider = "word2vec"
	assert.Error(t, cfg.Validate())
}
