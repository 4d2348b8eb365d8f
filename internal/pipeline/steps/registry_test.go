package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	have map[string]bool
	err  error
}

func (f fakeChecker) HasArtifact(_ context.Context, _ uuid.UUID, step string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.have[step], nil
}

func TestStepRegistry(t *testing.T) {
	for _, stepName := range []string{StepQuery, StepCompanies, StepOpenings, StepGuides, StepResult} {
		def, ok := StepRegistry[stepName]
		require.True(t, ok, "Step %s should be in registry", stepName)
		assert.Equal(t, stepName, def.Name)
		assert.NotEmpty(t, def.Category)
		for _, dep := range def.Dependencies {
			assert.Less(t, StepRegistry[dep].Order, def.Order, "%s must come after %s", stepName, dep)
		}
	}
}

func TestOrdered(t *testing.T) {
	assert.Equal(t, []string{StepQuery, StepCompanies, StepOpenings, StepGuides, StepResult}, Ordered())
	assert.Equal(t, CategoryCommute, CategoryOf(StepGuides))
	assert.Empty(t, CategoryOf("render_latex"))
}

func TestValidateDependencies(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	checker := fakeChecker{have: map[string]bool{StepQuery: true, StepCompanies: true}}
	assert.NoError(t, ValidateDependencies(ctx, checker, id, StepOpenings))

	err := ValidateDependencies(ctx, checker, id, StepGuides)
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, StepGuides, depErr.Step)
	assert.Equal(t, []string{StepOpenings}, depErr.MissingDependencies)
	assert.Contains(t, err.Error(), "missing dependencies")

	assert.Error(t, ValidateDependencies(ctx, checker, id, "unknown"))
	assert.Error(t, ValidateDependencies(ctx, fakeChecker{err: errors.New("db down")}, id, StepCompanies))
}

func TestProgress(t *testing.T) {
	checker := fakeChecker{have: map[string]bool{StepQuery: true, StepCompanies: true, StepResult: true}}

	done, pending, err := Progress(context.Background(), checker, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []string{StepQuery, StepCompanies, StepResult}, done)
	assert.Equal(t, []string{StepOpenings, StepGuides}, pending)
}
