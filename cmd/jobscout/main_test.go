package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/pipeline"
	"github.com/jonathan/jobscout/internal/pipeline/steps"
	"github.com/jonathan/jobscout/internal/store"
	"github.com/jonathan/jobscout/internal/types"
)

func TestSearchInput(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		role       string
		experience string
		location   string
		args       []string
		wantText   string
		wantQuery  bool
		wantErr    string
	}{
		{name: "query flag", text: "  Data Scientist jobs in Hyderabad ", wantText: "Data Scientist jobs in Hyderabad"},
		{name: "positional words", args: []string{"Go", "developer", "in", "Pune"}, wantText: "Go developer in Pune"},
		{name: "form fields", role: "Data Scientist", experience: "Fresher", location: "Hyderabad", wantQuery: true},
		{name: "partial form", role: "Data Scientist", location: "Hyderabad", wantErr: "must be given together"},
		{name: "form and text", text: "x", role: "r", experience: "fresher", location: "l", wantErr: "not both"},
		{name: "bad experience", role: "r", experience: "guru", location: "l", wantErr: "invalid search form"},
		{name: "nothing", wantErr: "a query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, q, err := searchInput(tt.text, tt.role, tt.experience, tt.location, tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			if !tt.wantQuery {
				assert.Nil(t, q)
				return
			}
			require.NotNil(t, q)
			assert.Equal(t, types.ExperienceFresher, q.ExperienceLevel)
			assert.Contains(t, q.Raw, "I want to search for a Data Scientist job in Hyderabad")
		})
	}
}

func sampleResponse() *pipeline.Response {
	q, _ := types.NewQuery("Data Scientist", "fresher", "Hyderabad")
	return &pipeline.Response{
		RunID:     "run-1",
		FinalText: "final text",
		Result: &types.PipelineResult{
			Query:     q,
			Strategy:  "handoff",
			Outcome:   types.OutcomeNoDataFound,
			Companies: []types.CompanyRecord{},
			Openings:  []types.JobOpening{},
			Guides:    []types.CommuteGuide{},
		},
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResponse(&buf, sampleResponse(), "json"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "final text", decoded["response"])

	buf.Reset()
	require.NoError(t, writeResponse(&buf, sampleResponse(), "markdown"))
	assert.Contains(t, buf.String(), "# Job search: Data Scientist")
	assert.Contains(t, buf.String(), "run: run-1")

	buf.Reset()
	require.NoError(t, writeResponse(&buf, &pipeline.Response{FinalText: "plain"}, "text"))
	assert.Equal(t, "plain\n", buf.String())

	assert.Error(t, writeResponse(&buf, sampleResponse(), "html"))
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"text", "markdown", "md", "json"} {
		assert.NoError(t, checkFormat(f), f)
	}
	assert.Error(t, checkFormat("pdf"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "******7890", mask("1234567890"))
}

func TestRunsCommands(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	q, err := types.NewQuery("Data Scientist", "fresher", "Hyderabad")
	require.NoError(t, err)
	id, err := st.CreateRun(ctx, q, "handoff")
	require.NoError(t, err)
	require.NoError(t, st.SaveArtifact(ctx, id, steps.StepQuery, q))

	runs, err := st.ListRuns(ctx, store.RunFilters{})
	require.NoError(t, err)

	var buf bytes.Buffer
	printRuns(&buf, runs)
	assert.Contains(t, buf.String(), id.String())
	assert.Contains(t, buf.String(), "Hyderabad")

	buf.Reset()
	printRuns(&buf, nil)
	assert.Equal(t, "no runs\n", buf.String())

	buf.Reset()
	require.NoError(t, showRun(ctx, &buf, st, id, ""))
	var detail struct {
		ID             string   `json:"id"`
		CompletedSteps []string `json:"completed_steps"`
		PendingSteps   []string `json:"pending_steps"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &detail))
	assert.Equal(t, id.String(), detail.ID)
	assert.Equal(t, []string{steps.StepQuery}, detail.CompletedSteps)
	assert.Len(t, detail.PendingSteps, len(steps.StepRegistry)-1)

	buf.Reset()
	require.NoError(t, showRun(ctx, &buf, st, id, steps.StepQuery))
	assert.Contains(t, buf.String(), `"role": "Data Scientist"`)

	assert.ErrorContains(t, showRun(ctx, &buf, st, id, "bogus"), "unknown step")
	assert.ErrorIs(t, showRun(ctx, &buf, st, id, steps.StepGuides), store.ErrNotFound)
}

func TestValidateCommand(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "LLM_MODEL", "SEARCH_BACKEND", "JOBSCOUT_STRATEGY", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT", "PORT"} {
		t.Setenv(k, "")
	}
	t.Setenv("GEMINI_API_KEY", "abcdefghijkl")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"validate", "--strategy", "collaborate"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "strategy: collaborate")
	assert.Contains(t, out.String(), "********ijkl")
	assert.NotContains(t, out.String(), "abcdefghijkl")
}
