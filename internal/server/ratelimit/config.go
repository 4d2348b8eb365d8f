package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the token bucket of one endpoint tier.
type EndpointConfig struct {
	Path   string // exact path, or a prefix when it ends in "/"
	Method string
	Limit  int // requests per Window
	Window time.Duration
	Burst  int // zero means Limit
}

// Search defaults. A search runs three model-backed stages, so it gets the strictest tier.
const (
	defaultSearchPerHour = 20
	defaultSearchBurst   = 3
)

// LoadConfig reads the limiter settings from RATE_LIMIT_* environment variables.
// Malformed values fall back to the defaults.
func LoadConfig() *Config {
	if !env("RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}

	perHour := env("RATE_LIMIT_SEARCH_PER_HOUR", defaultSearchPerHour, strconv.Atoi)
	burst := env("RATE_LIMIT_SEARCH_BURST", defaultSearchBurst, strconv.Atoi)

	return &Config{
		Enabled:         true,
		DefaultLimit:    env("RATE_LIMIT_DEFAULT_LIMIT", 1000, strconv.Atoi),
		DefaultWindow:   env("RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: env("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		Whitelist:       clientSet(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       clientSet(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: endpointTiers(perHour, burst),
	}
}

// DefaultEndpointConfigs returns the endpoint tiers with the default search budget.
func DefaultEndpointConfigs() []EndpointConfig {
	return endpointTiers(defaultSearchPerHour, defaultSearchBurst)
}

// endpointTiers lists the limited endpoints. Reads use the default limit and
// /health is never limited (see MatchEndpoint).
func endpointTiers(searchPerHour, searchBurst int) []EndpointConfig {
	var tiers []EndpointConfig
	for _, route := range [][2]string{
		{"/search", "GET"},
		{"/search", "POST"},
		{"/search/stream", "POST"},
	} {
		tiers = append(tiers, EndpointConfig{
			Path: route[0], Method: route[1],
			Limit: searchPerHour, Window: time.Hour, Burst: searchBurst,
		})
	}
	return append(tiers, EndpointConfig{Path: "/runs/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10})
}

// env parses an environment variable, returning def when it is unset or malformed.
func env[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

// clientSet turns a comma-separated list of client IDs into a set.
func clientSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}
