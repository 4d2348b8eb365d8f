// Package store persists search runs and their step artifacts in PostgreSQL or SQLite.
package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/jobscout/internal/pipeline/steps"
	"github.com/jonathan/jobscout/internal/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a run or artifact does not exist
var ErrNotFound = errors.New("not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Store is the run history used by the pipeline and the runs API
type Store interface {
	CreateRun(ctx context.Context, q types.Query, strategy string) (uuid.UUID, error)
	SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status, outcome string) error
	GetRun(ctx context.Context, runID uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filters RunFilters) ([]Run, error)
	ListArtifacts(ctx context.Context, runID uuid.UUID) ([]Artifact, error)
	GetArtifact(ctx context.Context, runID uuid.UUID, step string) (*Artifact, error)
	HasArtifact(ctx context.Context, runID uuid.UUID, step string) (bool, error)
	DeleteRun(ctx context.Context, runID uuid.UUID) error
	Close() error
}

// Run represents a search run record
type Run struct {
	ID              uuid.UUID  `json:"id"`
	Role            string     `json:"role"`
	Location        string     `json:"location"`
	ExperienceLevel string     `json:"experience_level"`
	RawQuery        string     `json:"raw_query,omitempty"`
	Strategy        string     `json:"strategy"`
	Status          string     `json:"status"`
	Outcome         string     `json:"outcome,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Artifact is the JSON output of one run step
type Artifact struct {
	ID        uuid.UUID       `json:"id"`
	RunID     uuid.UUID       `json:"run_id"`
	Step      string          `json:"step"`
	Category  string          `json:"category"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// RunFilters narrows ListRuns. Empty fields match everything.
type RunFilters struct {
	Status   string
	Outcome  string
	Location string
	Limit    int
	Offset   int
}

func (f RunFilters) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

// where renders the filter clauses with the driver's placeholder style.
func (f RunFilters) where(placeholder func(n int) string) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, placeholder(len(args))))
	}
	if f.Status != "" {
		add("status = %s", f.Status)
	}
	if f.Outcome != "" {
		add("outcome = %s", f.Outcome)
	}
	if f.Location != "" {
		add("LOWER(location) = LOWER(%s)", f.Location)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Open connects to the store named by url.
// postgres:// and postgresql:// URLs use PostgreSQL; sqlite:// URLs and paths ending
// in .db or .sqlite use SQLite.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return OpenSQLite(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database URL %q (want postgres://, sqlite:// or a .db path)", url)
	}
}

func marshalContent(content any) ([]byte, error) {
	if raw, ok := content.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return data, nil
}

// statements splits a migration file into individual statements.
func statements(file string) ([]string, error) {
	data, err := migrations.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
	}
	var out []string
	for _, stmt := range strings.Split(string(data), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// sortArtifacts orders artifacts by the position of their step in a run.
func sortArtifacts(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		return stepOrder(artifacts[i].Step) < stepOrder(artifacts[j].Step)
	})
}

func stepOrder(step string) int {
	if def, ok := steps.StepRegistry[step]; ok {
		return def.Order
	}
	return len(steps.StepRegistry)
}
