package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/logging"
)

// ToolName is the name the model uses to call web search.
const ToolName = "web_search"

// NewTool exposes s to the model. Search failures are returned as text so the
// model degrades its answer instead of failing the stage.
func NewTool(s Searcher, maxResults int) llm.Tool {
	log := logging.New("search")
	return llm.Tool{
		Name:        ToolName,
		Description: "Search the web. Returns numbered results with title, URL and snippet.",
		Params: []llm.ToolParam{
			{Name: "query", Description: "The search query", Required: true},
		},
		Call: func(ctx context.Context, args map[string]any) (string, error) {
			query := llm.StringArg(args, "query")
			if query == "" {
				return "", fmt.Errorf("query is required")
			}
			results, err := Collect(s.Search(ctx, query), maxResults)
			return FormatResults(query, results, err, log), nil
		},
	}
}

// FormatResults renders results for the model, noting a failure if one occurred.
func FormatResults(query string, results []Result, err error, log *slog.Logger) string {
	var sb strings.Builder
	if err != nil {
		log.Warn("search degraded", "query", query, "error", err, "partial", len(results))
		if len(results) == 0 {
			fmt.Fprintf(&sb, "search unavailable for %q: %v. Treat this information as unknown.", query, err)
			return sb.String()
		}
	}
	if len(results) == 0 {
		fmt.Fprintf(&sb, "no results for %q", query)
		return sb.String()
	}
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	if err != nil {
		sb.WriteString("(results may be incomplete: search failed part way)\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
