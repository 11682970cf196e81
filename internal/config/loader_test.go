package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
provider: anthropic
model: claude-3-5-haiku-latest
log:
  level: debug
  format: json
anthropic:
  api_key: from-file
storage:
  driver: sqlite
  dir: sessions
vectordb:
  engine: memory
marketing:
  sender:
    name: Bob
    email: bob@agency.test
  contacts:
    - company: Acme
      website: https://acme.test
      email: jane@acme.test
      contact_name: Jane
      position: CTO
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "yaml", cfg.Storage.Driver)
	assert.Equal(t, "chromem", cfg.VectorDB.Engine)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Searxng.MaxResults)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("COOKBOOK_ANTHROPIC_API_KEY", "")
	path := filepath.Join(t.TempDir(), "cookbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.ChatModel())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "sessions", cfg.Storage.Dir)
	assert.Equal(t, "agent_sessions", cfg.Storage.Table)
	assert.Equal(t, "memory", cfg.VectorDB.Engine)
	assert.Equal(t, "Bob", cfg.Marketing.Sender.Name)
	require.Len(t, cfg.Marketing.Contacts, 1)
	assert.Equal(t, "Jane", cfg.Marketing.Contacts[0].ContactName)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open config file")
}

func TestLoadEnvPrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-provider-env")
	cfg, err := LoadBytes([]byte(testYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-provider-env", cfg.ProviderConfig().APIKey)

	t.Setenv("COOKBOOK_ANTHROPIC_API_KEY", "from-cookbook-env")
	t.Setenv("COOKBOOK_PROVIDER", "anthropic")
	t.Setenv("COOKBOOK_STREAM", "true")
	t.Setenv("COOKBOOK_SEARXNG_MAX_RESULTS", "3")
	t.Setenv("FAL_KEY", "fal-key")
	cfg, err = LoadBytes([]byte(testYAML))
	require.NoError(t, err)
	assert.Equal(t, "from-cookbook-env", cfg.Anthropic.APIKey)
	assert.True(t, cfg.Stream)
	assert.Equal(t, 3, cfg.Searxng.MaxResults)
	assert.Equal(t, "fal-key", cfg.Fal.APIKey)
}

func TestLoadInvalid(t *testing.T) {
	_, err := LoadBytes([]byte("provider: mistral\n"))
	assert.ErrorContains(t, err, "unknown provider")
	_, err = LoadBytes([]byte("storage:\n  driver: redis\n"))
	assert.ErrorContains(t, err, "unknown storage driver")
	_, err = LoadBytes([]byte("vectordb:\n  reranker: bm25\n"))
	assert.ErrorContains(t, err, "unknown vectordb reranker")
	_, err = LoadBytes([]byte("log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "log:")
	_, err = LoadBytes([]byte("provider: [\n"))
	assert.ErrorContains(t, err, "failed to load config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "provider", EnvKey("COOKBOOK_PROVIDER"))
	assert.Equal(t, "openai.api_key", EnvKey("COOKBOOK_OPENAI_API_KEY"))
	assert.Equal(t, "log.level", EnvKey("COOKBOOK_LOG_LEVEL"))
	assert.Equal(t, "marketing.sender.name", EnvKey("COOKBOOK_MARKETING_SENDER_NAME"))
	assert.Equal(t, "marketing.sender.calendar_link", EnvKey("COOKBOOK_MARKETING_SENDER_CALENDAR_LINK"))
	assert.Equal(t, "vectordb.rerank_top_n", EnvKey("COOKBOOK_VECTORDB_RERANK_TOP_N"))
	assert.Equal(t, "searxng.max_results", EnvKey("COOKBOOK_SEARXNG_MAX_RESULTS"))
	assert.Equal(t, "test.other_value", EnvKey("COOKBOOK_TEST_OTHER_VALUE"))
}

func TestLoadNestedEnv(t *testing.T) {
	t.Setenv("COOKBOOK_MARKETING_SENDER_NAME", "Alice")
	t.Setenv("COOKBOOK_MARKETING_SENDER_SERVICE_OFFERED", "a free audit")
	t.Setenv("COOKBOOK_VECTORDB_RERANKER", "lexical")
	t.Setenv("COOKBOOK_VECTORDB_RERANK_TOP_N", "4")
	cfg, err := LoadBytes([]byte(testYAML))
	require.NoError(t, err)
	assert.Equal(t, "Alice", cfg.Marketing.Sender.Name)
	assert.Equal(t, "bob@agency.test", cfg.Marketing.Sender.Email)
	assert.Equal(t, "a free audit", cfg.Marketing.Sender.ServiceOffered)
	assert.Equal(t, "lexical", cfg.VectorDB.Reranker)
	assert.Equal(t, 4, cfg.VectorDB.RerankTopN)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(local, []byte("COOKBOOK_TEST_VALUE=local\n"), 0o600))
	require.NoError(t, os.WriteFile(shared, []byte("COOKBOOK_TEST_VALUE=shared\nCOOKBOOK_TEST_OTHER=shared\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("COOKBOOK_TEST_VALUE")
		os.Unsetenv("COOKBOOK_TEST_OTHER")
	})

	require.NoError(t, LoadEnvFiles(local, shared, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "local", os.Getenv("COOKBOOK_TEST_VALUE"))
	assert.Equal(t, "shared", os.Getenv("COOKBOOK_TEST_OTHER"))
}
