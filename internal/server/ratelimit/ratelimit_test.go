package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a limiter without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l.now = clock.Now
	return l, clock
}

func TestLimiter_Allow(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	for i := range 10 {
		allowed, info := l.Allow("127.0.0.1", "/runs", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/runs", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, float64(6*time.Second), float64(info.RetryAfter), float64(time.Millisecond))
}

func TestLimiter_Refill(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})

	for range 60 {
		allowed, _ := l.Allow("10.0.0.1", "/runs", "GET")
		require.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.1", "/runs", "GET")
	require.False(t, allowed)

	clock.Advance(time.Second)
	allowed, _ = l.Allow("10.0.0.1", "/runs", "GET")
	assert.True(t, allowed, "one token refills per second")
	allowed, _ = l.Allow("10.0.0.1", "/runs", "GET")
	assert.False(t, allowed)
}

func TestLimiter_ResetTime(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: 10 * time.Second})

	for range 5 {
		l.Allow("10.0.0.1", "/runs", "GET")
	}
	_, info := l.Allow("10.0.0.1", "/runs", "GET")
	assert.Equal(t, 4, info.Remaining)
	assert.Equal(t, clock.Now().Add(6*time.Second), info.ResetTime)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
		Blacklist:     map[string]bool{"192.0.2.1": true},
	})

	for range 20 {
		allowed, info := l.Allow("127.0.0.1", "/runs", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}

	allowed, _ := l.Allow("192.0.2.1", "/runs", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false, DefaultLimit: 1})

	for range 10 {
		allowed, _ := l.Allow("10.0.0.1", "/search", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})

	// burst of 3 for searches
	for range 3 {
		allowed, info := l.Allow("10.0.0.1", "/search", "POST")
		require.True(t, allowed)
		assert.Equal(t, 20, info.Limit)
	}
	allowed, _ := l.Allow("10.0.0.1", "/search", "POST")
	assert.False(t, allowed)

	// other endpoints and other clients keep their own buckets
	allowed, info := l.Allow("10.0.0.1", "/runs", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
	allowed, _ = l.Allow("10.0.0.2", "/search", "POST")
	assert.True(t, allowed)

	// health is never limited
	for range 200 {
		allowed, _ := l.Allow("10.0.0.1", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("10.0.0.1", "/runs", "GET"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowed.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	l, clock := newTestLimiter(t, &Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})

	l.Allow("10.0.0.1", "/runs", "GET")
	clock.Advance(30 * time.Minute)
	l.Allow("10.0.0.2", "/runs", "GET")
	clock.Advance(31 * time.Minute)

	l.cleanupBuckets()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "10.0.0.2:/runs:GET")
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/search", Method: "POST", Limit: 20},
		{Path: "/runs/", Method: "DELETE", Limit: 5},
		{Path: "/runs/archive/", Method: "DELETE", Limit: 1},
	}

	tests := []struct {
		name   string
		path   string
		method string
		limit  int
		isNil  bool
	}{
		{name: "exact", path: "/search", method: "POST", limit: 20},
		{name: "method differs", path: "/search", method: "GET", isNil: true},
		{name: "prefix", path: "/runs/abc", method: "DELETE", limit: 5},
		{name: "longest prefix", path: "/runs/archive/abc", method: "DELETE", limit: 1},
		{name: "health unlimited", path: "/health", method: "GET", limit: 0},
		{name: "no match", path: "/unknown", method: "GET", isNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.limit, got.Limit)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_WHITELIST", "127.0.0.1, ::1")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.True(t, cfg.Whitelist["::1"])
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}

func TestLoadConfig_SearchTier(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	t.Setenv("RATE_LIMIT_SEARCH_PER_HOUR", "5")
	t.Setenv("RATE_LIMIT_SEARCH_BURST", "not-a-number")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "soon")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Minute, cfg.DefaultWindow, "malformed values keep the default")

	got := MatchEndpoint("/search/stream", "POST", cfg.EndpointConfigs)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, defaultSearchBurst, got.Burst)
}
