// Package search provides the web search adapters the stage agents call as a tool.
// Every backend returns a lazy, finite sequence of results.
package search

import (
	"context"
	"fmt"
	"iter"
)

// Result is one search hit
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs a text query. The sequence performs no network work until it is ranged over
// and ends after a backend-specific maximum number of results.
type Searcher interface {
	Search(ctx context.Context, query string) iter.Seq2[Result, error]
}

// Error represents a failed search request
type Error struct {
	Backend string
	Query   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s search %q: %s: %v", e.Backend, e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s search %q: %s", e.Backend, e.Query, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Collect drains up to n results from seq. Results gathered before an error are returned with it.
func Collect(seq iter.Seq2[Result, error], n int) ([]Result, error) {
	var out []Result
	if n <= 0 {
		return out, nil
	}
	for r, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, r)
		if len(out) >= n {
			break
		}
	}
	return out, nil
}

// fail yields a single error.
func fail(err error) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		yield(Result{}, err)
	}
}

// Fallback uses secondary when primary fails before producing any result.
type Fallback struct {
	Primary   Searcher
	Secondary Searcher
}

// Search implements Searcher
func (f Fallback) Search(ctx context.Context, query string) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		produced := false
		for r, err := range f.Primary.Search(ctx, query) {
			if err != nil {
				if produced {
					yield(Result{}, err)
					return
				}
				break
			}
			produced = true
			if !yield(r, nil) {
				return
			}
		}
		if produced {
			return
		}
		for r, err := range f.Secondary.Search(ctx, query) {
			if !yield(r, err) || err != nil {
				return
			}
		}
	}
}
