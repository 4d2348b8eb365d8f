//go:build integration
// +build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/pipeline/steps"
)

func setupTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_RunLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestPostgres(t)
	ctx := context.Background()

	id, err := db.CreateRun(ctx, testQuery(), "handoff")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DeleteRun(context.Background(), id) })

	require.NoError(t, db.SaveArtifact(ctx, id, steps.StepResult, map[string]string{"outcome": "complete"}))
	require.NoError(t, db.SaveArtifact(ctx, id, steps.StepQuery, testQuery()))
	require.NoError(t, db.CompleteRun(ctx, id, "completed", "complete"))

	run, err := db.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, "Hyderabad", run.Location)
	require.NotNil(t, run.CompletedAt)

	artifacts, err := db.ListArtifacts(ctx, id)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, steps.StepQuery, artifacts[0].Step)
	assert.Equal(t, steps.StepResult, artifacts[1].Step)

	has, err := db.HasArtifact(ctx, id, steps.StepGuides)
	require.NoError(t, err)
	assert.False(t, has)

	runs, err := db.ListRuns(ctx, RunFilters{Status: "completed", Location: "hyderabad", Limit: 100})
	require.NoError(t, err)
	found := false
	for _, r := range runs {
		if r.ID == id {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPostgres_MissingRun_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestPostgres(t)
	ctx := context.Background()

	_, err := db.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteRun(ctx, uuid.New()), ErrNotFound)
}
