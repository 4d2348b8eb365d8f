package search

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// googlePageSize is the largest page the Custom Search JSON API serves.
const googlePageSize = 10

// googleMaxStart is the last result index the API allows.
const googleMaxStart = 91

// Google searches through the Custom Search JSON API, fetching pages lazily.
type Google struct {
	svc        *customsearch.Service
	cx         string
	MaxResults int
}

// NewGoogle creates a Custom Search client for the given engine ID.
// Extra client options (e.g. option.WithEndpoint) are passed through.
func NewGoogle(ctx context.Context, apiKey, cx string, maxResults int, opts ...option.ClientOption) (*Google, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires an API key and a search engine ID")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Google{svc: svc, cx: cx, MaxResults: maxResults}, nil
}

// Search implements Searcher. A new page is requested only when the previous one is consumed.
func (g *Google) Search(ctx context.Context, query string) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		limit := g.MaxResults
		if limit <= 0 {
			limit = googlePageSize
		}
		emitted := 0
		for start := int64(1); start <= googleMaxStart && emitted < limit; start += googlePageSize {
			num := int64(min(googlePageSize, limit-emitted))
			resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(num).Start(start).Context(ctx).Do()
			if err != nil {
				yield(Result{}, &Error{Backend: "google", Query: query, Message: "request failed", Cause: err})
				return
			}
			for _, item := range resp.Items {
				if !yield(Result{Title: item.Title, URL: item.Link, Snippet: item.Snippet}, nil) {
					return
				}
				emitted++
				if emitted >= limit {
					return
				}
			}
			if len(resp.Items) < int(num) {
				return
			}
		}
	}
}
