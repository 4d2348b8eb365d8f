// Package config provides configuration loading and validation for jobscout.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full jobscout configuration. It can be loaded from a JSON or YAML file,
// from the environment, and from CLI flags; zero fields are filled by the next source.
type Config struct {
	// Language model
	Provider      string  `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=gemini vertex"`
	Model         string  `json:"model,omitempty" yaml:"model,omitempty"`           // standard tier, used by stage agents
	LiteModel     string  `json:"lite_model,omitempty" yaml:"lite_model,omitempty"` // query extraction and summaries
	APIKey        string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	VertexProject string  `json:"vertex_project,omitempty" yaml:"vertex_project,omitempty"`
	VertexRegion  string  `json:"vertex_region,omitempty" yaml:"vertex_region,omitempty"`
	Temperature   float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
	LLMRate       float64 `json:"llm_rate,omitempty" yaml:"llm_rate,omitempty" validate:"gte=0"` // requests per second
	LLMBurst      int     `json:"llm_burst,omitempty" yaml:"llm_burst,omitempty" validate:"gte=0"`

	// Web search and page reading
	SearchBackend      string  `json:"search_backend,omitempty" yaml:"search_backend,omitempty" validate:"omitempty,oneof=duckduckgo google"`
	GoogleSearchAPIKey string  `json:"google_search_api_key,omitempty" yaml:"google_search_api_key,omitempty"`
	GoogleSearchCX     string  `json:"google_search_cx,omitempty" yaml:"google_search_cx,omitempty"`
	SearchResults      int     `json:"search_results,omitempty" yaml:"search_results,omitempty" validate:"gte=0,lte=20"`
	SearchRate         float64 `json:"search_rate,omitempty" yaml:"search_rate,omitempty" validate:"gte=0"`
	UseBrowser         bool    `json:"use_browser,omitempty" yaml:"use_browser,omitempty"`

	// Pipeline
	Strategy             string `json:"strategy,omitempty" yaml:"strategy,omitempty" validate:"omitempty,oneof=handoff collaborate collaboration"`
	HistoryWindow        int    `json:"history_window,omitempty" yaml:"history_window,omitempty" validate:"gte=0,lte=50"`
	CompaniesPerCategory int    `json:"companies_per_category,omitempty" yaml:"companies_per_category,omitempty" validate:"gte=0,lte=50"`
	Concurrency          int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty" validate:"gte=0,lte=32"`
	MaxToolCalls         int    `json:"max_tool_calls,omitempty" yaml:"max_tool_calls,omitempty" validate:"gte=0,lte=50"`
	MaxAttempts          int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"gte=0,lte=10"`
	StageTimeoutSeconds  int    `json:"stage_timeout_seconds,omitempty" yaml:"stage_timeout_seconds,omitempty" validate:"gte=0"`
	Summarize            bool   `json:"summarize,omitempty" yaml:"summarize,omitempty"`

	// Storage and serving
	DatabaseURL       string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	Port              int    `json:"port,omitempty" yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	RunTimeoutSeconds int    `json:"run_timeout_seconds,omitempty" yaml:"run_timeout_seconds,omitempty" validate:"gte=0"`

	// Logging
	LogLevel  string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=text json"`
}

// Default returns the built-in defaults
func Default() Config {
	return Config{
		Provider:             "gemini",
		VertexRegion:         "us-central1",
		Temperature:          0.1,
		LLMRate:              2,
		LLMBurst:             4,
		SearchBackend:        "duckduckgo",
		SearchResults:        8,
		SearchRate:           1,
		Strategy:             "handoff",
		HistoryWindow:        5,
		CompaniesPerCategory: 10,
		Concurrency:          4,
		MaxToolCalls:         8,
		MaxAttempts:          3,
		StageTimeoutSeconds:  120,
		Port:                 8080,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// LoadConfig loads configuration from a file.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return &cfg, nil
}

// FromEnv reads the configuration keys jobscout recognises from the environment.
func FromEnv() Config {
	cfg := Config{
		Provider:           os.Getenv("LLM_PROVIDER"),
		Model:              os.Getenv("LLM_MODEL"),
		LiteModel:          os.Getenv("LLM_LITE_MODEL"),
		APIKey:             firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		VertexProject:      firstEnv("VERTEX_PROJECT", "GOOGLE_CLOUD_PROJECT"),
		VertexRegion:       os.Getenv("VERTEX_REGION"),
		SearchBackend:      os.Getenv("SEARCH_BACKEND"),
		GoogleSearchAPIKey: os.Getenv("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchCX:     os.Getenv("GOOGLE_SEARCH_CX"),
		Strategy:           os.Getenv("JOBSCOUT_STRATEGY"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		LogFormat:          os.Getenv("LOG_FORMAT"),
	}
	cfg.Port = envInt("PORT")
	cfg.Concurrency = envInt("JOBSCOUT_CONCURRENCY")
	cfg.CompaniesPerCategory = envInt("JOBSCOUT_COMPANIES_PER_CATEGORY")
	return cfg
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// envInt returns zero for unset or malformed values so the next source wins.
func envInt(key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return 0
	}
	return n
}

// Validate checks field ranges and the combinations a run needs.
// Call it after secrets have been resolved.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' (got %v)", f.Field(), f.Tag(), f.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	switch c.Provider {
	case "vertex":
		if c.VertexProject == "" {
			return fmt.Errorf("config error: 'vertex_project' is required for the vertex provider")
		}
	default:
		if c.APIKey == "" {
			return fmt.Errorf("config error: an API key is required for the gemini provider (set GEMINI_API_KEY or run 'jobscout key set')")
		}
	}
	if c.SearchBackend == "google" && (c.GoogleSearchAPIKey == "" || c.GoogleSearchCX == "") {
		return fmt.Errorf("config error: the google search backend needs 'google_search_api_key' and 'google_search_cx'")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// Bools cannot distinguish unset from false, so they are true if either side is.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	str := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	num := func(dst *int, def int) {
		if *dst == 0 {
			*dst = def
		}
	}
	rate := func(dst *float64, def float64) {
		if *dst == 0 {
			*dst = def
		}
	}

	str(&result.Provider, defaults.Provider)
	str(&result.Model, defaults.Model)
	str(&result.LiteModel, defaults.LiteModel)
	str(&result.APIKey, defaults.APIKey)
	str(&result.VertexProject, defaults.VertexProject)
	str(&result.VertexRegion, defaults.VertexRegion)
	str(&result.SearchBackend, defaults.SearchBackend)
	str(&result.GoogleSearchAPIKey, defaults.GoogleSearchAPIKey)
	str(&result.GoogleSearchCX, defaults.GoogleSearchCX)
	str(&result.Strategy, defaults.Strategy)
	str(&result.DatabaseURL, defaults.DatabaseURL)
	str(&result.LogLevel, defaults.LogLevel)
	str(&result.LogFormat, defaults.LogFormat)

	if result.Temperature == 0 {
		result.Temperature = defaults.Temperature
	}
	rate(&result.LLMRate, defaults.LLMRate)
	rate(&result.SearchRate, defaults.SearchRate)

	num(&result.LLMBurst, defaults.LLMBurst)
	num(&result.SearchResults, defaults.SearchResults)
	num(&result.HistoryWindow, defaults.HistoryWindow)
	num(&result.CompaniesPerCategory, defaults.CompaniesPerCategory)
	num(&result.Concurrency, defaults.Concurrency)
	num(&result.MaxToolCalls, defaults.MaxToolCalls)
	num(&result.MaxAttempts, defaults.MaxAttempts)
	num(&result.StageTimeoutSeconds, defaults.StageTimeoutSeconds)
	num(&result.Port, defaults.Port)
	num(&result.RunTimeoutSeconds, defaults.RunTimeoutSeconds)

	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Summarize = result.Summarize || defaults.Summarize

	return result
}

// Resolve layers the sources: overrides (flags) win over the file, which wins over the
// environment, which wins over Default. path may be empty.
func Resolve(path string, overrides Config) (Config, error) {
	cfg := overrides
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.MergeWithDefaults(*file)
	}
	cfg = cfg.MergeWithDefaults(FromEnv())
	return cfg.MergeWithDefaults(Default()), nil
}
