// Package steps defines the recorded steps of a search run, their categories
// and the order in which their artifacts become available.
package steps

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Step names double as artifact keys in the run store.
const (
	StepQuery     = "query"
	StepCompanies = "companies"
	StepOpenings  = "openings"
	StepGuides    = "guides"
	StepResult    = "result"
)

// Step categories group steps for progress reporting.
const (
	CategoryInput     = "input"
	CategoryDiscovery = "discovery"
	CategoryOpenings  = "openings"
	CategoryCommute   = "commute"
	CategoryReport    = "report"
)

// StepDefinition defines metadata for a run step
type StepDefinition struct {
	Name         string
	Category     string
	Order        int
	Dependencies []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	StepQuery: {
		Name:     StepQuery,
		Category: CategoryInput,
		Order:    0,
	},
	StepCompanies: {
		Name:         StepCompanies,
		Category:     CategoryDiscovery,
		Order:        1,
		Dependencies: []string{StepQuery},
	},
	StepOpenings: {
		Name:         StepOpenings,
		Category:     CategoryOpenings,
		Order:        2,
		Dependencies: []string{StepCompanies},
	},
	StepGuides: {
		Name:         StepGuides,
		Category:     CategoryCommute,
		Order:        3,
		Dependencies: []string{StepOpenings},
	},
	StepResult: {
		Name:         StepResult,
		Category:     CategoryReport,
		Order:        4,
		Dependencies: []string{StepQuery},
	},
}

// CategoryOf returns the category of a step, or "" for unknown steps.
func CategoryOf(step string) string {
	return StepRegistry[step].Category
}

// Ordered returns every step name in run order.
func Ordered() []string {
	names := make([]string, 0, len(StepRegistry))
	for name := range StepRegistry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return StepRegistry[names[i]].Order < StepRegistry[names[j]].Order
	})
	return names
}

// ArtifactChecker reports whether a run already has the artifact of a step
type ArtifactChecker interface {
	HasArtifact(ctx context.Context, runID uuid.UUID, step string) (bool, error)
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// ValidateDependencies checks that every artifact a step depends on has been recorded
func ValidateDependencies(ctx context.Context, checker ArtifactChecker, runID uuid.UUID, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		has, err := checker.HasArtifact(ctx, runID, dep)
		if err != nil {
			return fmt.Errorf("failed to check dependency %s: %w", dep, err)
		}
		if !has {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// Progress splits the steps of a run into recorded and pending, each in run order.
// Steps skipped by a short-circuited run stay pending.
func Progress(ctx context.Context, checker ArtifactChecker, runID uuid.UUID) (done, pending []string, err error) {
	for _, name := range Ordered() {
		has, err := checker.HasArtifact(ctx, runID, name)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check step %s: %w", name, err)
		}
		if has {
			done = append(done, name)
		} else {
			pending = append(pending, name)
		}
	}
	return done, pending, nil
}
