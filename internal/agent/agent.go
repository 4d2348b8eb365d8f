// Package agent wraps the language model invoker with a fixed role and instruction list
// and enforces a JSON Schema on what each stage returns.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/logging"
	"github.com/jonathan/jobscout/internal/prompts"
	"github.com/jonathan/jobscout/internal/schemas"
	"github.com/jonathan/jobscout/internal/types"
)

// historyOutputChars bounds each history entry shown to later stages.
const historyOutputChars = 600

// Definition is the fixed identity of a stage agent
type Definition struct {
	Key          string
	Name         string
	Role         string
	Instructions []string
}

// FromPrompt loads a stage definition from the embedded prompt files.
func FromPrompt(key string) (Definition, error) {
	stage, err := prompts.GetStage(key)
	if err != nil {
		return Definition{}, err
	}
	return Definition{Key: key, Name: stage.Name, Role: stage.Role, Instructions: stage.Instructions}, nil
}

// Options bounds the cost of one stage invocation
type Options struct {
	Tier         llm.ModelTier
	MaxToolCalls int
	MaxAttempts  int
	Timeout      time.Duration
}

// DefaultOptions returns the budgets used when none are configured
func DefaultOptions() Options {
	return Options{
		Tier:         llm.TierStandard,
		MaxToolCalls: llm.DefaultMaxToolCalls,
		MaxAttempts:  3,
		Timeout:      2 * time.Minute,
	}
}

// PriorOutput is the structured output of an earlier stage
type PriorOutput struct {
	Stage   string
	Content string
}

// Interaction is one completed stage invocation, kept for collaboration history
type Interaction struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject"`
	Output  string `json:"output"`
}

// Input is everything a stage invocation sees
type Input struct {
	Query types.Query
	// Subject names what this invocation is about (a category, company, or opening)
	Subject string
	// Task is the one-line task for this invocation
	Task string
	// Vars fill placeholders in the definition's instructions
	Vars    map[string]string
	Prior   []PriorOutput
	History []Interaction
}

// Agent is a stateless stage agent
type Agent struct {
	def    Definition
	client llm.Client
	tools  []llm.Tool
	opts   Options
	log    *slog.Logger
}

// New creates an Agent. Zero option fields fall back to DefaultOptions.
func New(def Definition, client llm.Client, tools []llm.Tool, opts Options) *Agent {
	d := DefaultOptions()
	if opts.Tier == "" {
		opts.Tier = d.Tier
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = d.MaxToolCalls
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = d.MaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = d.Timeout
	}
	return &Agent{def: def, client: client, tools: tools, opts: opts, log: logging.New("agent." + def.Key)}
}

// Definition returns the agent's definition
func (a *Agent) Definition() Definition {
	return a.def
}

// Run invokes the model and decodes its answer into out after validating it against schemaName.
// Invalid answers are re-prompted with the validation errors up to MaxAttempts times.
func (a *Agent) Run(ctx context.Context, in Input, schemaName string, out any) (Interaction, error) {
	schemaSrc, err := schemas.Source(schemaName)
	if err != nil {
		return Interaction{}, err
	}

	base := renderContext(in, schemaSrc)
	req := llm.Request{
		System:       a.def.Role,
		Instructions: prompts.FormatAll(a.def.Instructions, instructionVars(in)),
		Context:      base,
		Tools:        a.tools,
		JSON:         true,
		MaxToolCalls: a.opts.MaxToolCalls,
		Tier:         a.opts.Tier,
	}

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		text, err := a.complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return Interaction{}, ctx.Err()
			}
			if errors.Is(err, llm.ErrToolBudgetExceeded) {
				a.log.Warn("tool budget exceeded", "subject", in.Subject, "attempt", attempt)
				lastErr = err
				continue
			}
			return Interaction{}, &UpstreamError{Stage: a.def.Name, Cause: err}
		}

		cleaned := llm.CleanJSONBlock(text)
		if err := decode(schemaName, cleaned, out); err != nil {
			a.log.Info("stage output rejected", "subject", in.Subject, "attempt", attempt, "error", err)
			lastErr = err
			req.Context = base + "\n\n" + retryPrompt(err)
			continue
		}

		return Interaction{Stage: a.def.Name, Subject: in.Subject, Output: cleaned}, nil
	}

	return Interaction{}, &SchemaError{Stage: a.def.Name, Attempts: a.opts.MaxAttempts, Cause: lastErr}
}

func (a *Agent) complete(ctx context.Context, req llm.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	text, err := a.client.Complete(callCtx, req)
	a.log.Debug("stage call", "duration", time.Since(start), "error", err)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("stage timed out after %s: %w", a.opts.Timeout, err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", llm.ErrNoContent
	}
	return text, nil
}

func decode(schemaName, text string, out any) error {
	if err := schemas.Validate(schemaName, text); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to decode output: %w", err)
	}
	return nil
}

func retryPrompt(err error) string {
	msg := err.Error()
	var ve *schemas.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Brief()
	}
	return prompts.Format(prompts.MustGet(prompts.PipelineFile, "schema-retry"), map[string]string{"Errors": msg})
}

func instructionVars(in Input) map[string]string {
	vars := map[string]string{
		"Role":       in.Query.Role,
		"Location":   in.Query.Location,
		"Experience": in.Query.ExperienceLevel.Label(),
	}
	for k, v := range in.Vars {
		vars[k] = v
	}
	return vars
}

func renderContext(in Input, schemaSrc string) string {
	queryJSON, _ := json.MarshalIndent(in.Query, "", "  ")

	var prior string
	if len(in.Prior) > 0 {
		var sb strings.Builder
		for _, p := range in.Prior {
			fmt.Fprintf(&sb, "### %s\n%s\n", p.Stage, p.Content)
		}
		prior = prompts.Format(prompts.MustGet(prompts.PipelineFile, "prior-outputs"), map[string]string{"Outputs": sb.String()})
	}

	var history string
	if len(in.History) > 0 {
		var sb strings.Builder
		for _, h := range in.History {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", h.Stage, h.Subject, clip(h.Output, historyOutputChars))
		}
		history = prompts.Format(prompts.MustGet(prompts.PipelineFile, "history"), map[string]string{"Interactions": sb.String()})
	}

	return prompts.Format(prompts.MustGet(prompts.PipelineFile, "stage-context"), map[string]string{
		"Query":   string(queryJSON),
		"Task":    in.Task,
		"Prior":   prior,
		"History": history,
		"Schema":  schemaSrc,
	})
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
