package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_CachesPages(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("<main>Open roles: Data Analyst</main>"))
	}))
	defer server.Close()

	r := NewReader(nil, nil)
	for i := 0; i < 3; i++ {
		page, err := r.Read(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "Open roles: Data Analyst", page.Text)
	}
	assert.Equal(t, 1, hits)

	now := time.Now()
	r.now = func() time.Time { return now.Add(2 * DefaultCacheTTL) }
	_, err := r.Read(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestReader_BrowserFallbackForThinPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<main>Loading…</main>`))
	}))
	defer server.Close()

	rendered := "<main>" + strings.Repeat("Senior Data Scientist, Gachibowli. ", 20) + "</main>"
	r := NewReader(nil, func(context.Context, string) (string, error) { return rendered, nil })

	page, err := r.Read(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, page.Rendered)
	assert.Contains(t, page.Text, "Gachibowli")
}

func TestReader_BrowserFailureKeepsHTTPText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<main>Short page</main>`))
	}))
	defer server.Close()

	r := NewReader(nil, func(context.Context, string) (string, error) { return "", errors.New("no chrome") })

	page, err := r.Read(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, page.Rendered)
	assert.Equal(t, "Short page", page.Text)
}

func TestNewTool_TruncatesAndDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("<main>" + strings.Repeat("a", 50) + "</main>"))
	}))
	defer server.Close()

	r := NewReader(nil, nil)
	r.MaxChars = 10
	tool := NewTool(r)

	out, err := tool.Call(context.Background(), map[string]any{"url": server.URL})
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa\n[truncated]", out)

	out, err = tool.Call(context.Background(), map[string]any{"url": server.URL + "/missing"})
	require.NoError(t, err)
	assert.Contains(t, out, "page unavailable")

	_, err = tool.Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestTool_ListsJobLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<main>We are hiring in Pune. <a href="/jobs/42">Backend Engineer</a></main>`))
	}))
	defer server.Close()

	tool := NewTool(NewReader(nil, nil))
	out, err := tool.Call(context.Background(), map[string]any{"url": server.URL})
	require.NoError(t, err)
	assert.Contains(t, out, "We are hiring in Pune.")
	assert.Contains(t, out, "Links on this page:\n- Backend Engineer: "+server.URL+"/jobs/42")
}
