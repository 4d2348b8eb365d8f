package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func googleServer(t *testing.T, total int, requests *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests = append(*requests, r.URL.Query().Get("start"))
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		num, _ := strconv.Atoi(r.URL.Query().Get("num"))

		var items []map[string]string
		for i := start; i < start+num && i <= total; i++ {
			items = append(items, map[string]string{
				"title":   fmt.Sprintf("Result %d", i),
				"link":    fmt.Sprintf("https://example.com/%d", i),
				"snippet": "snippet",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"items": items}))
	}))
}

func TestGoogle_PagesLazily(t *testing.T) {
	var requests []string
	server := googleServer(t, 25, &requests)
	defer server.Close()

	g, err := NewGoogle(context.Background(), "key", "cx", 15, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	results, err := Collect(g.Search(context.Background(), "MNC companies in Pune"), 100)
	require.NoError(t, err)
	assert.Len(t, results, 15)
	assert.Equal(t, "https://example.com/11", results[10].URL)
	assert.Equal(t, []string{"1", "11"}, requests)
}

func TestGoogle_StopsOnShortPage(t *testing.T) {
	var requests []string
	server := googleServer(t, 4, &requests)
	defer server.Close()

	g, err := NewGoogle(context.Background(), "key", "cx", 30, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	results, err := Collect(g.Search(context.Background(), "q"), 100)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Len(t, requests, 1)
}

func TestGoogle_EarlyBreakSkipsNextPage(t *testing.T) {
	var requests []string
	server := googleServer(t, 50, &requests)
	defer server.Close()

	g, err := NewGoogle(context.Background(), "key", "cx", 50, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	_, err = Collect(g.Search(context.Background(), "q"), 3)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestGoogle_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"code": 429, "message": "quota"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	g, err := NewGoogle(context.Background(), "key", "cx", 10, option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)

	_, err = Collect(g.Search(context.Background(), "q"), 10)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "google", se.Backend)
}

func TestNewGoogle_RequiresCredentials(t *testing.T) {
	_, err := NewGoogle(context.Background(), "", "cx", 10)
	assert.Error(t, err)
}
