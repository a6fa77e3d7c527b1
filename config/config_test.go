package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/linkrank/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvSearchAPIKey, "")
	t.Setenv(EnvSearchEngineID, "")

	cfg, err := Load("")
	require.NoError(t, err)

	defaults := ai.DefaultConfig()
	assert.Equal(t, defaults.EmbeddingHost, cfg.AI.EmbeddingHost)
	assert.Equal(t, defaults.ChatModel, cfg.AI.ChatModel)
	assert.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, 5, cfg.Rank.TopN)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Credentials().APIKey)
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvSearchAPIKey, "")
	t.Setenv(EnvSearchEngineID, "")
	t.Setenv("TEST_LINKRANK_KEY", "from-env")

	path := writeFile(t, "linkrank.yaml", `
ai:
  host: http://llm.internal:8080
  chat_model: gpt-4o-mini
  nodes:
    node-7:
      host: http://node7:9100
      model: llama3.2
search:
  api_key: ${TEST_LINKRANK_KEY}
  engine_id: ${TEST_LINKRANK_MISSING:-fallback-cx}
storage:
  path: /var/lib/linkrank
rank:
  top_n: 3
  pool_size: 4
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://llm.internal:8080", cfg.AI.EmbeddingHost)
	assert.Equal(t, "http://llm.internal:8080", cfg.AI.ChatHost)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.ChatModel)
	assert.Equal(t, "from-env", cfg.Search.APIKey)
	assert.Equal(t, "fallback-cx", cfg.Search.EngineID)
	assert.Equal(t, "/var/lib/linkrank", cfg.Storage.Path)
	assert.Equal(t, 3, cfg.Rank.TopN)
	assert.Equal(t, 4, cfg.Rank.PoolSize)
	assert.Equal(t, "debug", cfg.Logging.Level)

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://llm.internal:8080/v1", aiCfg.ChatHost)
	require.Contains(t, aiCfg.Nodes, ai.NodeRef("node-7"))
	assert.Equal(t, "http://node7:9100/v1", aiCfg.Nodes["node-7"].Host)
	assert.Equal(t, "llama3.2", aiCfg.Nodes["node-7"].Model)
}

func TestLoad_EnvOverridesCredentials(t *testing.T) {
	t.Setenv(EnvSearchAPIKey, "env-key")
	t.Setenv(EnvSearchEngineID, "env-cx")

	path := writeFile(t, "linkrank.yaml", `
search:
  api_key: file-key
  engine_id: file-cx
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	creds := cfg.Credentials()
	assert.Equal(t, "env-key", creds.APIKey)
	assert.Equal(t, "env-cx", creds.EngineID)
	assert.NoError(t, creds.Validate())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		errMsg   string
	}{
		{
			name:     "malformed yaml",
			contents: "ai: [unclosed",
			errMsg:   "failed to parse config",
		},
		{
			name:     "negative pool size",
			contents: "rank:\n  pool_size: -1\n",
			errMsg:   "rank.pool_size",
		},
		{
			name:     "negative dispatch pool size",
			contents: "dispatch:\n  pool_size: -2\n",
			errMsg:   "dispatch.pool_size",
		},
		{
			name:     "unknown log level",
			contents: "logging:\n  level: verbose\n",
			errMsg:   "logging.level",
		},
		{
			name:     "node without model",
			contents: "ai:\n  nodes:\n    n1:\n      host: http://n1\n",
			errMsg:   "Model is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", tt.contents))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InMemoryStorage(t *testing.T) {
	cfg, err := Load(writeFile(t, "mem.yaml", "storage:\n  in_memory: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Storage.InMemory)
	assert.Empty(t, cfg.Storage.Path)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvSearchAPIKey, "before")
	t.Setenv(EnvSearchEngineID, "before-cx")

	path := writeFile(t, ".env", EnvSearchAPIKey+"=dotenv-key\n"+EnvSearchEngineID+"=dotenv-cx\n")
	require.NoError(t, LoadEnv(path))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.Search.APIKey)
	assert.Equal(t, "dotenv-cx", cfg.Search.EngineID)

	assert.NoError(t, LoadEnv())
	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_LINKRANK_SET", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"${TEST_LINKRANK_SET}", "value"},
		{"${TEST_LINKRANK_UNSET}", ""},
		{"${TEST_LINKRANK_UNSET:-dflt}", "dflt"},
		{"${TEST_LINKRANK_SET:-dflt}", "value"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, string(expandEnvVars([]byte(tt.in))))
		})
	}
}
