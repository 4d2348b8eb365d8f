package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/jobscout/internal/types"
)

// Strategy selects how much of the run each stage gets to see
type Strategy string

const (
	// StrategyHandoff passes each stage only the item produced for it by the previous stage
	StrategyHandoff Strategy = "handoff"
	// StrategyCollaborate shares every earlier stage output and the recent interaction history
	StrategyCollaborate Strategy = "collaborate"
)

// ParseStrategy maps a config string onto a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyHandoff:
		return StrategyHandoff, nil
	case StrategyCollaborate, "collaboration":
		return StrategyCollaborate, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want handoff or collaborate)", s)
	}
}

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs.
// Calls for one run never overlap.
type ProgressCallback func(event ProgressEvent)

// Recorder persists runs and their step artifacts
type Recorder interface {
	CreateRun(ctx context.Context, q types.Query, strategy string) (uuid.UUID, error)
	SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status, outcome string) error
}

// Run statuses passed to Recorder.CompleteRun.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Options holds the orchestration settings
type Options struct {
	Strategy Strategy
	// HistoryWindow is how many recent interactions collaborating stages see
	HistoryWindow int
	// CompaniesPerCategory caps Stage 1 output per category
	CompaniesPerCategory int
	// Concurrency bounds parallel stage calls within a run
	Concurrency int
	// Summarize asks the model for the final commentary instead of the built-in one
	Summarize  bool
	OnProgress ProgressCallback
	Recorder   Recorder
}

// DefaultOptions returns the orchestration defaults
func DefaultOptions() Options {
	return Options{
		Strategy:             StrategyHandoff,
		HistoryWindow:        5,
		CompaniesPerCategory: types.DefaultCompaniesPerCategory,
		Concurrency:          4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = d.HistoryWindow
	}
	if o.CompaniesPerCategory <= 0 {
		o.CompaniesPerCategory = d.CompaniesPerCategory
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	return o
}
