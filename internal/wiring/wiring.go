// Package wiring builds the pipeline and its collaborators from a resolved config.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jonathan/jobscout/internal/agent"
	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/fetch"
	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/logging"
	"github.com/jonathan/jobscout/internal/pipeline"
	"github.com/jonathan/jobscout/internal/search"
	"github.com/jonathan/jobscout/internal/store"
)

// browserTimeout bounds one headless render.
const browserTimeout = 45 * time.Second

// Runtime is a ready-to-use pipeline with the resources it owns.
type Runtime struct {
	Orchestrator *pipeline.Orchestrator
	// Store is nil when no database is configured
	Store  store.Store
	Client llm.Client
}

// Close releases the model client and the store.
func (r *Runtime) Close() error {
	var errs []error
	if r.Client != nil {
		errs = append(errs, r.Client.Close())
	}
	if r.Store != nil {
		errs = append(errs, r.Store.Close())
	}
	return errors.Join(errs...)
}

// Option adjusts a Runtime before the orchestrator is built.
type Option func(*pipeline.Options)

// WithProgress installs a default progress callback on every run.
func WithProgress(cb pipeline.ProgressCallback) Option {
	return func(o *pipeline.Options) { o.OnProgress = cb }
}

// Build assembles a Runtime. cfg must already be validated.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*Runtime, error) {
	log := logging.New("wiring")

	strategy, err := pipeline.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	llmCfg, err := LLMConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Client: client}
	limited := llm.NewRateLimited(client, llm.NewLimiter(cfg.LLMRate, cfg.LLMBurst))

	searcher, err := Searcher(ctx, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	tools := []llm.Tool{
		search.NewTool(searcher, cfg.SearchResults),
		fetch.NewTool(Reader(cfg)),
	}

	stageOpts := agent.Options{
		Tier:         llm.TierStandard,
		MaxToolCalls: cfg.MaxToolCalls,
		MaxAttempts:  cfg.MaxAttempts,
		Timeout:      time.Duration(cfg.StageTimeoutSeconds) * time.Second,
	}
	agents := make(map[string]*agent.Agent, 3)
	for _, key := range []string{"company-finder", "job-finder", "commute-guide"} {
		def, err := agent.FromPrompt(key)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to load %s prompt: %w", key, err)
		}
		agents[key] = agent.New(def, limited, tools, stageOpts)
	}

	popts := pipeline.Options{
		Strategy:             strategy,
		HistoryWindow:        cfg.HistoryWindow,
		CompaniesPerCategory: cfg.CompaniesPerCategory,
		Concurrency:          cfg.Concurrency,
		Summarize:            cfg.Summarize,
	}

	if cfg.DatabaseURL != "" {
		st, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Store = st
		popts.Recorder = st
		log.Info("run history enabled", "database", RedactURL(cfg.DatabaseURL))
	}

	for _, opt := range opts {
		opt(&popts)
	}

	rt.Orchestrator = pipeline.New(
		&pipeline.AgentCompanyFinder{Agent: agents["company-finder"], Count: cfg.CompaniesPerCategory},
		&pipeline.AgentJobFinder{Agent: agents["job-finder"]},
		&pipeline.AgentCommuteAdvisor{Agent: agents["commute-guide"]},
		limited,
		popts,
	)

	log.Debug("pipeline ready",
		"provider", llmCfg.Provider,
		"model", llmCfg.GetModel(llm.TierStandard),
		"search", cfg.SearchBackend,
		"strategy", strategy,
		"browser", cfg.UseBrowser,
	)
	return rt, nil
}

// LLMConfig maps the model settings onto an llm.Config.
func LLMConfig(cfg config.Config) (*llm.Config, error) {
	provider, err := llm.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	var c *llm.Config
	switch provider {
	case llm.ProviderVertex:
		c = llm.DefaultVertexConfig(cfg.VertexProject, cfg.VertexRegion)
	default:
		c = llm.DefaultGeminiConfig()
	}
	if cfg.Model != "" {
		c = c.WithModel(llm.TierStandard, cfg.Model)
	}
	if cfg.LiteModel != "" {
		c = c.WithModel(llm.TierLite, cfg.LiteModel)
	}
	if cfg.Temperature > 0 {
		c.Temperature = cfg.Temperature
	}
	return c, nil
}

// Searcher builds the configured search backend behind the shared search limiter.
// Google falls back to DuckDuckGo when it fails before returning anything.
func Searcher(ctx context.Context, cfg config.Config) (search.Searcher, error) {
	var s search.Searcher = search.NewDuckDuckGo(cfg.SearchResults)
	switch cfg.SearchBackend {
	case "", "duckduckgo":
	case "google":
		g, err := search.NewGoogle(ctx, cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX, cfg.SearchResults)
		if err != nil {
			return nil, err
		}
		s = search.Fallback{Primary: g, Secondary: s}
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.SearchBackend)
	}
	return search.NewRateLimited(s, llm.NewLimiter(cfg.SearchRate, 1)), nil
}

// Reader builds the page reader, with headless Chrome fallback when enabled.
func Reader(cfg config.Config) *fetch.Reader {
	var render fetch.RenderFunc
	if cfg.UseBrowser {
		render = fetch.ChromeRenderer(browserTimeout, logging.New("fetch.browser"))
	}
	return fetch.NewReader(fetch.DefaultOptions(), render)
}

// RedactURL hides the password of a database URL for logging.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
