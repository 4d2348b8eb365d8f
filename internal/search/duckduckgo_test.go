package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com">Sponsored</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fcareers.acme.example%2Fjobs&amp;rut=x">Careers at Acme</a></h2>
  <a class="result__snippet">Open roles in   Hyderabad
  for data scientists.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://www.naukri.com/acme-jobs">Acme Jobs - Naukri</a></h2>
  <a class="result__snippet">12 openings</a>
</div>
<div class="result"><a class="result__a" href="javascript:void(0)">Broken</a></div>
</body></html>`

func TestDuckDuckGo_ParsesResults(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.FormValue("q")
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer server.Close()

	d := NewDuckDuckGo(10)
	d.BaseURL = server.URL

	results, err := Collect(d.Search(context.Background(), "Acme careers Hyderabad"), 10)
	require.NoError(t, err)

	assert.Equal(t, "Acme careers Hyderabad", gotQuery)
	require.Len(t, results, 2)
	assert.Equal(t, Result{
		Title:   "Careers at Acme",
		URL:     "https://careers.acme.example/jobs",
		Snippet: "Open roles in Hyderabad for data scientists.",
	}, results[0])
	assert.Equal(t, "https://www.naukri.com/acme-jobs", results[1].URL)
}

func TestDuckDuckGo_MaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer server.Close()

	d := NewDuckDuckGo(1)
	d.BaseURL = server.URL

	results, err := Collect(d.Search(context.Background(), "q"), 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDuckDuckGo_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDuckDuckGo(5)
	d.BaseURL = server.URL

	_, err := Collect(d.Search(context.Background(), "q"), 5)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Message, "429")
}

func TestDuckDuckGo_NoRequestUntilIterated(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
	}))
	defer server.Close()

	d := NewDuckDuckGo(5)
	d.BaseURL = server.URL
	_ = d.Search(context.Background(), "q")

	assert.False(t, hit)
}

func TestResolveDuckDuckGoLink(t *testing.T) {
	assert.Equal(t, "https://a.example/x?y=1", resolveDuckDuckGoLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx%3Fy%3D1"))
	assert.Equal(t, "https://b.example", resolveDuckDuckGoLink("https://b.example"))
	assert.Equal(t, "", resolveDuckDuckGoLink("javascript:void(0)"))
	assert.Equal(t, "", resolveDuckDuckGoLink(""))
}
