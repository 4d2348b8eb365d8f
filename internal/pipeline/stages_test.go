package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobscout/internal/agent"
	"github.com/jonathan/jobscout/internal/schemas"
	"github.com/jonathan/jobscout/internal/types"
)

// fakeRunner decodes a canned answer the way agent.Agent does after validation
type fakeRunner struct {
	answer string
	err    error
	input  agent.Input
	schema string
}

func (f *fakeRunner) Run(_ context.Context, in agent.Input, schemaName string, out any) (agent.Interaction, error) {
	f.input, f.schema = in, schemaName
	if f.err != nil {
		return agent.Interaction{}, f.err
	}
	if err := schemas.Validate(schemaName, f.answer); err != nil {
		return agent.Interaction{}, err
	}
	return agent.Interaction{Output: f.answer}, json.Unmarshal([]byte(f.answer), out)
}

func TestAgentCompanyFinder(t *testing.T) {
	r := &fakeRunner{answer: `{"companies": [{"name": "Acme", "location": "Madhapur", "industry": "SaaS"}, {"name": "Zeta"}]}`}
	f := &AgentCompanyFinder{Agent: r, Count: 10}

	records, err := f.FindCompanies(context.Background(), StageInput{Query: hyderabadQuery()}, types.CategoryProductBased)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, types.CategoryProductBased, records[0].Category)
	assert.Equal(t, "SaaS", records[0].Industry)
	assert.Equal(t, schemas.Companies, r.schema)
	assert.Equal(t, "product_based", r.input.Subject)
	assert.Equal(t, "10", r.input.Vars["Count"])
	assert.Equal(t, "Product-based", r.input.Vars["CategoryLabel"])
	assert.Contains(t, r.input.Task, "Product-based companies in Hyderabad")
}

func TestAgentJobFinder(t *testing.T) {
	r := &fakeRunner{answer: `{"status": "found", "title": " ML Engineer ", "experience_required": "2-4 years", "application_link": "https://zeta.example/jobs/7"}`}
	f := &AgentJobFinder{Agent: r}
	company := types.CompanyRecord{ID: "startup-zeta", Name: "Zeta", Category: types.CategoryStartup, Location: "Kondapur"}

	o, err := f.FindOpening(context.Background(), StageInput{Query: hyderabadQuery()}, company)
	require.NoError(t, err)

	assert.Equal(t, types.OpeningFound, o.Status)
	assert.Equal(t, "ML Engineer", o.Title)
	assert.Equal(t, types.ExperienceExperienced, o.ExperienceRequired)
	assert.Equal(t, "startup-zeta", o.CompanyID)
	assert.Equal(t, "Zeta", r.input.Vars["Company"])
	assert.Contains(t, r.input.Task, "Data Scientist opening for a Experienced candidate at Zeta (Kondapur)")
}

func TestAgentJobFinder_PassesErrors(t *testing.T) {
	r := &fakeRunner{err: &agent.SchemaError{Stage: StageJobFinder, Attempts: 3}}
	f := &AgentJobFinder{Agent: r}

	_, err := f.FindOpening(context.Background(), StageInput{Query: hyderabadQuery()}, types.CompanyRecord{Name: "Zeta"})
	assert.ErrorIs(t, err, agent.ErrSchemaViolation)
}

func TestAgentCommuteAdvisor(t *testing.T) {
	r := &fakeRunner{answer: `{
		"landmarks": [{"name": "Kondapur Bus Depot", "kind": "bus stand", "distance": "800 m"}],
		"transit_options": [],
		"cab_options": [{"provider": "Ola", "fare_estimate": "₹180"}],
		"notes": "No metro line serves this area"
	}`}
	a := &AgentCommuteAdvisor{Agent: r}
	opening := types.JobOpening{ID: "opening-startup-zeta", CompanyID: "startup-zeta", CompanyName: "Zeta", Title: "ML Engineer", Status: types.OpeningFound}

	g, err := a.GuideCommute(context.Background(), StageInput{Query: hyderabadQuery()}, opening)
	require.NoError(t, err)

	assert.Equal(t, "opening-startup-zeta", g.OpeningID)
	require.Len(t, g.Landmarks, 1)
	assert.Equal(t, "800 m", g.Landmarks[0].Distance)
	assert.Empty(t, g.TransitOptions)
	assert.Equal(t, "Ola", g.CabOptions[0].Provider)
	assert.Equal(t, "Hyderabad", r.input.Vars["Workplace"], "workplace falls back to the query location")
}
