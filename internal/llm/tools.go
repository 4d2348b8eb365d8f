package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// budgetExhausted is returned to the model in place of a tool result once its calls are spent.
const budgetExhausted = "tool call budget exhausted: answer now with the information you already have"

// ToolParam is a string parameter of a tool
type ToolParam struct {
	Name        string
	Description string
	Required    bool
}

// Tool is a function the model may call while producing an answer
type Tool struct {
	Name        string
	Description string
	Params      []ToolParam
	// Call runs the tool. A returned error is reported to the model as text.
	Call func(ctx context.Context, args map[string]any) (string, error)
}

// ToolCall is a tool invocation requested by the model
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the answer sent back for one ToolCall
type ToolResult struct {
	Name   string
	Output string
}

// Turn is one model response: either final text or a set of tool calls
type Turn struct {
	Text  string
	Calls []ToolCall
}

// session is a provider chat that keeps the conversation between turns.
type session interface {
	Send(ctx context.Context, text string) (Turn, error)
	SendToolResults(ctx context.Context, results []ToolResult) (Turn, error)
}

// admittedSession waits for admission before each tool-result round.
// The opening Send is admitted by the caller of Complete.
type admittedSession struct {
	session
	admit func(context.Context) error
}

func admitted(s session, admit func(context.Context) error) session {
	if admit == nil {
		return s
	}
	return &admittedSession{session: s, admit: admit}
}

func (s *admittedSession) SendToolResults(ctx context.Context, results []ToolResult) (Turn, error) {
	if err := s.admit(ctx); err != nil {
		return Turn{}, err
	}
	return s.session.SendToolResults(ctx, results)
}

// LoopStats reports how a tool loop went
type LoopStats struct {
	Turns     int
	ToolCalls int
	Rejected  int
}

// runToolLoop drives a session until the model answers with text.
// At most maxCalls tool calls are executed. Calls beyond that are answered with
// budgetExhausted, and a second turn made entirely of rejected calls ends the loop
// with ErrToolBudgetExceeded.
func runToolLoop(ctx context.Context, s session, prompt string, tools []Tool, maxCalls int, log *slog.Logger) (string, LoopStats, error) {
	var stats LoopStats
	rejectedTurns := 0

	turn, err := s.Send(ctx, prompt)
	for {
		stats.Turns++
		if err != nil {
			return "", stats, err
		}
		if len(turn.Calls) == 0 {
			if strings.TrimSpace(turn.Text) == "" {
				return "", stats, ErrNoContent
			}
			return turn.Text, stats, nil
		}
		if err := ctx.Err(); err != nil {
			return "", stats, err
		}

		results := make([]ToolResult, 0, len(turn.Calls))
		executed := 0
		for _, call := range turn.Calls {
			if stats.ToolCalls >= maxCalls {
				stats.Rejected++
				results = append(results, ToolResult{Name: call.Name, Output: budgetExhausted})
				continue
			}
			stats.ToolCalls++
			executed++
			results = append(results, ToolResult{Name: call.Name, Output: invokeTool(ctx, tools, call, log)})
		}

		if executed == 0 {
			rejectedTurns++
			if rejectedTurns > 1 {
				return "", stats, fmt.Errorf("%w: %d calls allowed", ErrToolBudgetExceeded, maxCalls)
			}
		}

		turn, err = s.SendToolResults(ctx, results)
	}
}

func invokeTool(ctx context.Context, tools []Tool, call ToolCall, log *slog.Logger) string {
	for _, t := range tools {
		if t.Name != call.Name {
			continue
		}
		out, err := t.Call(ctx, call.Args)
		if err != nil {
			log.Debug("tool call failed", "tool", call.Name, "error", err)
			return fmt.Sprintf("tool %s failed: %v", call.Name, err)
		}
		return out
	}
	return fmt.Sprintf("unknown tool %q", call.Name)
}

// StringArg reads a string argument from model-supplied tool arguments.
func StringArg(args map[string]any, name string) string {
	v, ok := args[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// composePrompt joins the instruction list and the context into the user turn.
func composePrompt(req Request) string {
	var sb strings.Builder
	if len(req.Instructions) > 0 {
		sb.WriteString("## Instructions\n")
		for i, line := range req.Instructions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, line)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(req.Context)
	return sb.String()
}
