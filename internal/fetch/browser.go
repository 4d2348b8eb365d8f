package fetch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinContentLength is the extracted text length below which a page is treated
// as JavaScript-rendered and retried in a headless browser.
const MinContentLength = 500

// ShouldUseBrowser returns true if the extracted text is too short to be the real page.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// RenderFunc returns the rendered HTML of a page
type RenderFunc func(ctx context.Context, url string) (string, error)

// ChromeRenderer renders pages with a headless Chrome through chromedp.
// Chrome or Chromium must be installed.
func ChromeRenderer(timeout time.Duration, log *slog.Logger) RenderFunc {
	return func(ctx context.Context, url string) (string, error) {
		return WithBrowser(ctx, url, timeout, log)
	}
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, log *slog.Logger) (string, error) {
	log.Debug("starting headless browser", "url", url)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Job boards hydrate listings after load
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	log.Debug("rendered page", "url", url, "bytes", len(html))
	return html, nil
}
