package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/logging"
)

// ReadPageToolName is the name the model uses to open a page.
const ReadPageToolName = "read_page"

// DefaultMaxChars bounds how much page text is handed to the model.
const DefaultMaxChars = 6000

// DefaultCacheTTL is how long a fetched page is reused.
const DefaultCacheTTL = 30 * time.Minute

// Page is the readable text of a fetched page
type Page struct {
	URL      string
	Board    Board
	Text     string
	Links    []Link
	Rendered bool
}

// Reader fetches pages and extracts their readable text, caching results in memory.
// Career pages are shared across companies and runs, so repeated reads are served from the cache.
type Reader struct {
	Options  *Options
	Render   RenderFunc
	CacheTTL time.Duration
	MaxChars int

	log   *slog.Logger
	mu    sync.Mutex
	cache map[string]cachedPage
	now   func() time.Time
}

type cachedPage struct {
	page    Page
	fetched time.Time
}

// NewReader creates a Reader. render may be nil to disable browser fallback.
func NewReader(opts *Options, render RenderFunc) *Reader {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Reader{
		Options:  opts,
		Render:   render,
		CacheTTL: DefaultCacheTTL,
		MaxChars: DefaultMaxChars,
		log:      logging.New("fetch"),
		cache:    make(map[string]cachedPage),
		now:      time.Now,
	}
}

// Read returns the readable text of a page.
func (r *Reader) Read(ctx context.Context, urlStr string) (Page, error) {
	if page, ok := r.cached(urlStr); ok {
		return page, nil
	}

	board := DetectBoard(urlStr)
	page := Page{URL: urlStr, Board: board}

	result, err := URL(ctx, urlStr, r.Options)
	if err != nil {
		return Page{}, err
	}
	page.Text, err = ExtractMainText(result.HTML, BoardContentSelectors(board), BoardNoiseSelectors(board)...)
	if err != nil {
		return Page{}, &Error{URL: urlStr, Message: "failed to extract text", Cause: err}
	}
	page.Links = ExtractLinks(result.HTML, urlStr)

	if r.Render != nil && ShouldUseBrowser(page.Text) {
		html, err := r.Render(ctx, urlStr)
		if err != nil {
			r.log.Debug("browser fallback failed", "url", urlStr, "error", err)
		} else if text, err := ExtractMainText(html, BoardContentSelectors(board), BoardNoiseSelectors(board)...); err == nil && len(text) > len(page.Text) {
			page.Text = text
			page.Rendered = true
			if links := ExtractLinks(html, urlStr); len(links) > 0 {
				page.Links = links
			}
		}
	}

	r.store(urlStr, page)
	return page, nil
}

func (r *Reader) cached(urlStr string) (Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cache[urlStr]
	if !ok {
		return Page{}, false
	}
	if r.CacheTTL > 0 && r.now().Sub(c.fetched) > r.CacheTTL {
		delete(r.cache, urlStr)
		return Page{}, false
	}
	return c.page, true
}

func (r *Reader) store(urlStr string, page Page) {
	if r.CacheTTL <= 0 {
		return
	}
	r.mu.Lock()
	r.cache[urlStr] = cachedPage{page: page, fetched: r.now()}
	r.mu.Unlock()
}

// NewTool exposes the reader to the model. Fetch failures are returned as text.
func NewTool(r *Reader) llm.Tool {
	return llm.Tool{
		Name:        ReadPageToolName,
		Description: "Open a web page (career page or job listing) and return its main text and the job or application links found on it.",
		Params: []llm.ToolParam{
			{Name: "url", Description: "Absolute http(s) URL to open", Required: true},
		},
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			urlStr := llm.StringArg(args, "url")
			if urlStr == "" {
				return "", fmt.Errorf("url is required")
			}
			page, err := r.Read(ctx, urlStr)
			if err != nil {
				r.log.Warn("page read degraded", "url", urlStr, "error", err)
				return fmt.Sprintf("page unavailable: %v. Treat its contents as unknown.", err), nil
			}
			return formatPage(page, r.MaxChars), nil
		},
	}
}

// formatPage renders a page for the model: its text, then the job links found on it.
func formatPage(page Page, maxChars int) string {
	text := truncate(page.Text, maxChars)
	if len(page.Links) == 0 {
		return text
	}
	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\nLinks on this page:\n")
	for _, l := range page.Links {
		fmt.Fprintf(&sb, "- %s: %s\n", l.Text, l.URL)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "\n[truncated]"
}
