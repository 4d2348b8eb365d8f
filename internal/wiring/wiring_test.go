package wiring

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/pipeline"
	"github.com/jonathan/jobscout/internal/search"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.APIKey = "test-key"
	return cfg
}

func TestLLMConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Model = "custom-flash"
	cfg.LiteModel = "custom-lite"
	cfg.Temperature = 0.5

	c, err := LLMConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, c.Provider)
	assert.Equal(t, "custom-flash", c.GetModel(llm.TierStandard))
	assert.Equal(t, "custom-lite", c.GetModel(llm.TierLite))
	assert.Equal(t, "gemini-2.5-pro", c.GetModel(llm.TierAdvanced))
	assert.InDelta(t, 0.5, c.Temperature, 1e-6)
}

func TestLLMConfig_Vertex(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = "vertex"
	cfg.VertexProject = "proj"
	cfg.VertexRegion = ""

	c, err := LLMConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderVertex, c.Provider)
	assert.Equal(t, "proj", c.Project)
	assert.Equal(t, "us-central1", c.Region)

	cfg.Provider = "openai"
	_, err = LLMConfig(cfg)
	assert.Error(t, err)
}

func TestSearcher(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	s, err := Searcher(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &search.RateLimited{}, s)

	cfg.SearchRate = 0
	s, err = Searcher(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &search.DuckDuckGo{}, s, "no limiter without a rate")

	cfg.SearchBackend = "google"
	cfg.GoogleSearchAPIKey = "key"
	cfg.GoogleSearchCX = "cx"
	s, err = Searcher(ctx, cfg)
	require.NoError(t, err)
	fb, ok := s.(search.Fallback)
	require.True(t, ok)
	assert.IsType(t, &search.Google{}, fb.Primary)
	assert.IsType(t, &search.DuckDuckGo{}, fb.Secondary)

	cfg.GoogleSearchCX = ""
	_, err = Searcher(ctx, cfg)
	assert.Error(t, err)

	cfg.SearchBackend = "bing"
	_, err = Searcher(ctx, cfg)
	assert.ErrorContains(t, err, "unknown search backend")
}

func TestReader(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, Reader(cfg).Render)

	cfg.UseBrowser = true
	assert.NotNil(t, Reader(cfg).Render)
}

func TestBuild(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = "collaborate"
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "runs.db")

	var events []pipeline.ProgressEvent
	rt, err := Build(context.Background(), cfg, WithProgress(func(e pipeline.ProgressEvent) {
		events = append(events, e)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.NotNil(t, rt.Orchestrator)
	require.NotNil(t, rt.Store)
	opts := rt.Orchestrator.Options()
	assert.Equal(t, pipeline.StrategyCollaborate, opts.Strategy)
	assert.Equal(t, cfg.CompaniesPerCategory, opts.CompaniesPerCategory)
	assert.NotNil(t, opts.OnProgress)
	assert.NotNil(t, opts.Recorder)
	assert.Empty(t, events)
}

func TestBuild_WithoutStore(t *testing.T) {
	rt, err := Build(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Nil(t, rt.Store)
	assert.Nil(t, rt.Orchestrator.Options().Recorder)
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = "vote"
	_, err := Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown strategy")

	cfg = testConfig()
	cfg.APIKey = ""
	_, err = Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "API key is required")

	cfg = testConfig()
	cfg.DatabaseURL = "mysql://localhost/runs"
	_, err = Build(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported database URL")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://user:xxxxx@db:5432/jobs", RedactURL("postgres://user:secret@db:5432/jobs"))
	assert.Equal(t, "runs.db", RedactURL("runs.db"))
}
