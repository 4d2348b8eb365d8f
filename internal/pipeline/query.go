package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/jobscout/internal/agent"
	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/prompts"
	"github.com/jonathan/jobscout/internal/schemas"
	"github.com/jonathan/jobscout/internal/types"
)

// ParseQuery turns query text into a Query.
// The dashboard sentence is parsed directly. Other text goes to the model when one is
// configured and falls back to keyword matching when the model answer is unusable.
func (o *Orchestrator) ParseQuery(ctx context.Context, text string) (types.Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Query{}, &QueryError{Cause: errors.New("query is empty")}
	}
	if q, ok := types.ParseComposed(text); ok {
		return q, nil
	}

	if o.client != nil {
		q, err := o.extractQuery(ctx, text)
		if err == nil {
			return q, nil
		}
		if errors.Is(err, agent.ErrUpstreamUnavailable) || ctx.Err() != nil {
			return types.Query{}, err
		}
		o.log.Info("query extraction rejected, using keyword parser", "error", err)
	}

	q, err := parseKeywords(text)
	if err != nil {
		return types.Query{}, &QueryError{Text: text, Cause: err}
	}
	return q, nil
}

type extractedQuery struct {
	Role            string `json:"role"`
	ExperienceLevel string `json:"experience_level"`
	Location        string `json:"location"`
}

func (o *Orchestrator) extractQuery(ctx context.Context, text string) (types.Query, error) {
	schemaSrc, err := schemas.Source(schemas.Query)
	if err != nil {
		return types.Query{}, err
	}
	prompt := prompts.Format(prompts.MustGet(prompts.PipelineFile, "extract-query"), map[string]string{
		"Text":   text,
		"Schema": schemaSrc,
	})

	out, err := o.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return types.Query{}, &agent.UpstreamError{Stage: "Query", Cause: err}
	}
	if err := schemas.Validate(schemas.Query, out); err != nil {
		return types.Query{}, err
	}

	var eq extractedQuery
	if err := json.Unmarshal([]byte(out), &eq); err != nil {
		return types.Query{}, fmt.Errorf("failed to decode extracted query: %w", err)
	}
	q, err := types.NewQuery(eq.Role, eq.ExperienceLevel, eq.Location)
	if err != nil {
		return types.Query{}, err
	}
	q.Raw = text
	return q, nil
}

var (
	rolePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:for|as)\s+(?:an?\s+)?([a-z][a-z0-9 /+#.-]*?)\s+(?:jobs?|roles?|positions?|openings?|vacanc(?:y|ies))\b`),
		regexp.MustCompile(`(?i)\bi\s*(?:am|'m)\s+(?:an?\s+)?([a-z][a-z0-9 /+#.-]*?)\s+(?:with|having|and)\b`),
		regexp.MustCompile(`(?i)^(?:an?\s+)?([a-z][a-z0-9 /+#.-]*?)\s+(?:jobs?|roles?|positions?|openings?|vacanc(?:y|ies))\b`),
	}
	locationPattern = regexp.MustCompile(`(?i)\b(?:in|at|near)\s+([a-z][a-z .'-]*?)(?:\s+(?:with|for|as|and|who)\b|[,;.?!]|$)`)
	fresherPattern  = regexp.MustCompile(`(?i)\b(?:freshers?|entry[- ]level|graduates?|interns?(?:hip)?|junior)\b`)
	seniorPattern   = regexp.MustCompile(`(?i)\b(?:experienced|senior|mid[- ]level|lead)\b`)
)

// parseKeywords reads a query such as "Data Scientist jobs in Hyderabad for experienced candidates".
func parseKeywords(text string) (types.Query, error) {
	var role string
	for _, p := range rolePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			role = m[1]
			break
		}
	}
	role = strings.TrimSpace(fresherPattern.ReplaceAllString(seniorPattern.ReplaceAllString(role, ""), ""))
	if role == "" {
		return types.Query{}, errors.New("could not find a job role")
	}

	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return types.Query{}, errors.New("could not find a location")
	}
	location := m[1]

	var experience string
	switch {
	case fresherPattern.MatchString(text):
		experience = string(types.ExperienceFresher)
	case seniorPattern.MatchString(text):
		experience = string(types.ExperienceExperienced)
	default:
		level, err := types.ParseExperienceLevel(text)
		if err != nil {
			return types.Query{}, errors.New("could not find an experience level (fresher or experienced)")
		}
		experience = string(level)
	}

	q, err := types.NewQuery(role, experience, location)
	if err != nil {
		return types.Query{}, err
	}
	q.Raw = text
	return q, nil
}
