package search

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDuckDuckGoURL is the JavaScript-free DuckDuckGo results page.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DefaultUserAgent is sent with search requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; jobscout/1.0)"

// DuckDuckGo searches the DuckDuckGo HTML endpoint and parses the result page with goquery.
// It reads a single result page per query.
type DuckDuckGo struct {
	BaseURL    string
	Region     string
	MaxResults int
	Client     *http.Client
	UserAgent  string
}

// NewDuckDuckGo returns a DuckDuckGo searcher with default endpoint and client
func NewDuckDuckGo(maxResults int) *DuckDuckGo {
	return &DuckDuckGo{
		BaseURL:    DefaultDuckDuckGoURL,
		MaxResults: maxResults,
		Client:     &http.Client{Timeout: 20 * time.Second},
		UserAgent:  DefaultUserAgent,
	}
}

// Search implements Searcher
func (d *DuckDuckGo) Search(ctx context.Context, query string) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		results, err := d.fetch(ctx, query)
		if err != nil {
			yield(Result{}, err)
			return
		}
		for i, r := range results {
			if d.MaxResults > 0 && i >= d.MaxResults {
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (d *DuckDuckGo) fetch(ctx context.Context, query string) ([]Result, error) {
	form := url.Values{"q": {query}}
	if d.Region != "" {
		form.Set("kl", d.Region)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Backend: "duckduckgo", Query: query, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.UserAgent)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Backend: "duckduckgo", Query: query, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Backend: "duckduckgo", Query: query, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &Error{Backend: "duckduckgo", Query: query, Message: "failed to parse results page", Cause: err}
	}
	return parseDuckDuckGo(doc), nil
}

func parseDuckDuckGo(doc *goquery.Document) []Result {
	var results []Result
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		target := resolveDuckDuckGoLink(href)
		if title == "" || target == "" {
			return
		}
		results = append(results, Result{
			Title:   title,
			URL:     target,
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").Text()), " "),
		})
	})
	return results
}

// resolveDuckDuckGoLink unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=...).
func resolveDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
