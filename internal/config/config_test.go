package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

var envKeys = []string{
	"LLM_PROVIDER", "LLM_MODEL", "LLM_LITE_MODEL", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	"VERTEX_PROJECT", "GOOGLE_CLOUD_PROJECT", "VERTEX_REGION", "SEARCH_BACKEND",
	"GOOGLE_SEARCH_API_KEY", "GOOGLE_SEARCH_CX", "JOBSCOUT_STRATEGY", "DATABASE_URL",
	"LOG_LEVEL", "LOG_FORMAT", "PORT", "JOBSCOUT_CONCURRENCY", "JOBSCOUT_COMPANIES_PER_CATEGORY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"provider": "gemini",
		"strategy": "collaborate",
		"companies_per_category": 5,
		"use_browser": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "collaborate", cfg.Strategy)
	assert.Equal(t, 5, cfg.CompaniesPerCategory)
	assert.True(t, cfg.UseBrowser)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeFile(t, "jobscout.yaml", `
provider: vertex
vertex_project: my-project
search_backend: google
history_window: 3
temperature: 0.4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "vertex", cfg.Provider)
	assert.Equal(t, "my-project", cfg.VertexProject)
	assert.Equal(t, 3, cfg.HistoryWindow)
	assert.InDelta(t, 0.4, cfg.Temperature, 1e-6)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "config path is empty")

	_, err = LoadConfig("/nonexistent/path/config.json")
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadConfig(writeFile(t, "config.json", `{ invalid json }`))
	assert.ErrorContains(t, err, "failed to parse config JSON")

	_, err = LoadConfig(writeFile(t, "config.yml", "strategy: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config YAML")
}

func TestFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "from-google")
	t.Setenv("JOBSCOUT_STRATEGY", "collaborate")
	t.Setenv("PORT", "9090")
	t.Setenv("JOBSCOUT_CONCURRENCY", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, "from-google", cfg.APIKey, "GOOGLE_API_KEY is the fallback")
	assert.Equal(t, "collaborate", cfg.Strategy)
	assert.Equal(t, 9090, cfg.Port)
	assert.Zero(t, cfg.Concurrency)

	t.Setenv("GEMINI_API_KEY", "from-gemini")
	assert.Equal(t, "from-gemini", FromEnv().APIKey)
}

func TestResolve_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("JOBSCOUT_STRATEGY", "collaborate")
	t.Setenv("DATABASE_URL", "runs.db")

	path := writeFile(t, "config.yaml", "strategy: handoff\nconcurrency: 2\n")

	cfg, err := Resolve(path, Config{Concurrency: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Concurrency, "flag beats file")
	assert.Equal(t, "handoff", cfg.Strategy, "file beats env")
	assert.Equal(t, "env-key", cfg.APIKey, "env fills what the file leaves out")
	assert.Equal(t, "runs.db", cfg.DatabaseURL)
	assert.Equal(t, 10, cfg.CompaniesPerCategory, "defaults fill the rest")
	assert.Equal(t, "duckduckgo", cfg.SearchBackend)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with key", mutate: func(*Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.APIKey = "" }, wantErr: "API key is required"},
		{name: "vertex without project", mutate: func(c *Config) { c.Provider = "vertex"; c.APIKey = "" }, wantErr: "vertex_project"},
		{name: "vertex with project", mutate: func(c *Config) { c.Provider = "vertex"; c.APIKey = ""; c.VertexProject = "p" }},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "openai" }, wantErr: "Provider"},
		{name: "google without cx", mutate: func(c *Config) { c.SearchBackend = "google"; c.GoogleSearchAPIKey = "k" }, wantErr: "google_search_cx"},
		{name: "bad strategy", mutate: func(c *Config) { c.Strategy = "vote" }, wantErr: "Strategy"},
		{name: "negative concurrency", mutate: func(c *Config) { c.Concurrency = -1 }, wantErr: "Concurrency"},
		{name: "too many companies", mutate: func(c *Config) { c.CompaniesPerCategory = 500 }, wantErr: "CompaniesPerCategory"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "LogFormat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
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

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Strategy: "collaborate", Port: 9000}
	defaults := Config{Strategy: "handoff", Port: 8080, DatabaseURL: "runs.db", Summarize: true, LLMRate: 3}

	result := cfg.MergeWithDefaults(defaults)
	assert.Equal(t, "collaborate", result.Strategy)
	assert.Equal(t, 9000, result.Port)
	assert.Equal(t, "runs.db", result.DatabaseURL)
	assert.True(t, result.Summarize)
	assert.InDelta(t, 3.0, result.LLMRate, 1e-9)

	// the receiver is not modified
	assert.Empty(t, cfg.DatabaseURL)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Strategy: "handoff", Concurrency: 3}
	assert.Equal(t, cfg, cfg.MergeWithDefaults(Config{}))
}

func TestSecrets(t *testing.T) {
	keyring.MockInit()

	_, err := GetAPIKey()
	assert.ErrorContains(t, err, "not found")
	assert.Error(t, SetAPIKey("  "))

	require.NoError(t, SetAPIKey("stored-key"))
	key, err := GetAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "stored-key", key)

	cfg := Config{Provider: "gemini"}
	cfg.ResolveSecrets()
	assert.Equal(t, "stored-key", cfg.APIKey)

	explicit := Config{Provider: "gemini", APIKey: "flag-key"}
	explicit.ResolveSecrets()
	assert.Equal(t, "flag-key", explicit.APIKey)

	require.NoError(t, DeleteAPIKey())
	require.NoError(t, DeleteAPIKey(), "deleting twice is fine")
	_, err = GetAPIKey()
	assert.Error(t, err)
}
