package search

import (
	"context"
	"iter"

	"golang.org/x/time/rate"
)

// RateLimited gates each search on a shared limiter, like the per-host limiter of a scraper.
type RateLimited struct {
	next    Searcher
	limiter *rate.Limiter
}

// NewRateLimited wraps s so that starting a search waits for a limiter token.
// A nil limiter returns s unchanged.
func NewRateLimited(s Searcher, limiter *rate.Limiter) Searcher {
	if limiter == nil {
		return s
	}
	return &RateLimited{next: s, limiter: limiter}
}

// Search implements Searcher. The wait happens when iteration starts.
func (r *RateLimited) Search(ctx context.Context, query string) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		if err := r.limiter.Wait(ctx); err != nil {
			yield(Result{}, &Error{Backend: "ratelimit", Query: query, Message: "search admission", Cause: err})
			return
		}
		for res, err := range r.next.Search(ctx, query) {
			if !yield(res, err) {
				return
			}
		}
	}
}
