package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/logging"
)

// Flags shared by every command that builds a pipeline or opens the store.
var (
	configPath     string
	logLevel       string
	logFormat      string
	apiKeyFlag     string
	providerFlag   string
	modelFlag      string
	databaseURL    string
	searchBackend  string
	strategyFlag   string
	useBrowserFlag bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default info)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json (default text)")
	pf.StringVar(&apiKeyFlag, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY or the keychain)")
	pf.StringVar(&providerFlag, "provider", "", "LLM provider: gemini or vertex")
	pf.StringVar(&modelFlag, "model", "", "Model used by the stage agents")
	pf.StringVar(&databaseURL, "db-url", "", "Run history database: postgres:// URL or SQLite .db path (defaults to DATABASE_URL)")
	pf.StringVar(&searchBackend, "search", "", "Web search backend: duckduckgo or google")
	pf.StringVar(&strategyFlag, "strategy", "", "Stage coordination: handoff or collaborate")
	pf.BoolVar(&useBrowserFlag, "use-browser", false, "Render JavaScript-heavy pages in headless Chrome")
}

// flagOverrides collects the flags the user actually set.
func flagOverrides(cmd *cobra.Command) config.Config {
	var cfg config.Config
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("api-key", &cfg.APIKey, apiKeyFlag)
	set("provider", &cfg.Provider, providerFlag)
	set("model", &cfg.Model, modelFlag)
	set("db-url", &cfg.DatabaseURL, databaseURL)
	set("search", &cfg.SearchBackend, searchBackend)
	set("strategy", &cfg.Strategy, strategyFlag)
	set("log-level", &cfg.LogLevel, logLevel)
	set("log-format", &cfg.LogFormat, logFormat)
	if flags.Changed("use-browser") {
		cfg.UseBrowser = useBrowserFlag
	}
	return cfg
}

// loadConfig resolves flags, the config file, the environment and defaults, fills the
// API key from the keychain and configures logging. It does not validate.
func loadConfig(cmd *cobra.Command, extra func(*config.Config)) (config.Config, error) {
	overrides := flagOverrides(cmd)
	if extra != nil {
		extra(&overrides)
	}

	cfg, err := config.Resolve(configPath, overrides)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ResolveSecrets()

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, err
	}
	logging.Init(level, cfg.LogFormat, cmd.ErrOrStderr())
	return cfg, nil
}

// loadValidConfig is loadConfig followed by Validate.
func loadValidConfig(cmd *cobra.Command, extra func(*config.Config)) (config.Config, error) {
	cfg, err := loadConfig(cmd, extra)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
