package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/jonathan/jobscout/internal/agent"
	"github.com/jonathan/jobscout/internal/prompts"
	"github.com/jonathan/jobscout/internal/schemas"
	"github.com/jonathan/jobscout/internal/types"
)

// Stage names as they appear in history and prior-output context.
const (
	StageCompanyFinder = "Company Finder"
	StageJobFinder     = "Job Finder"
	StageCommuteGuide  = "Commute Guide"
)

// StageInput is what the orchestrator shares with a stage beyond its subject
type StageInput struct {
	Query   types.Query
	Prior   []agent.PriorOutput
	History []agent.Interaction
}

// CompanyFinder lists companies of one category in the query location
type CompanyFinder interface {
	FindCompanies(ctx context.Context, in StageInput, category types.Category) ([]types.CompanyRecord, error)
}

// JobFinder looks for one opening matching the query at a company
type JobFinder interface {
	FindOpening(ctx context.Context, in StageInput, company types.CompanyRecord) (types.JobOpening, error)
}

// CommuteAdvisor describes how to reach the workplace of a found opening
type CommuteAdvisor interface {
	GuideCommute(ctx context.Context, in StageInput, opening types.JobOpening) (types.CommuteGuide, error)
}

// Runner is the part of agent.Agent the stages use
type Runner interface {
	Run(ctx context.Context, in agent.Input, schemaName string, out any) (agent.Interaction, error)
}

// AgentCompanyFinder runs the company-finder agent once per category
type AgentCompanyFinder struct {
	Agent Runner
	Count int
}

type companyListOutput struct {
	Companies []struct {
		Name     string `json:"name"`
		Location string `json:"location"`
		Industry string `json:"industry"`
		Notes    string `json:"notes"`
	} `json:"companies"`
}

// FindCompanies returns the raw records of one category; the orchestrator normalizes them
func (f *AgentCompanyFinder) FindCompanies(ctx context.Context, in StageInput, category types.Category) ([]types.CompanyRecord, error) {
	count := f.Count
	if count <= 0 {
		count = types.DefaultCompaniesPerCategory
	}
	vars := map[string]string{
		"Count":         strconv.Itoa(count),
		"CategoryLabel": category.Label(),
	}
	var out companyListOutput
	_, err := f.Agent.Run(ctx, agent.Input{
		Query:   in.Query,
		Subject: string(category),
		Task:    task("task-companies", map[string]string{"CategoryLabel": category.Label(), "Location": in.Query.Location}),
		Vars:    vars,
		Prior:   in.Prior,
		History: in.History,
	}, schemas.Companies, &out)
	if err != nil {
		return nil, err
	}

	records := make([]types.CompanyRecord, 0, len(out.Companies))
	for _, c := range out.Companies {
		records = append(records, types.CompanyRecord{
			Name:     c.Name,
			Category: category,
			Location: c.Location,
			Industry: c.Industry,
			Notes:    c.Notes,
		})
	}
	return records, nil
}

// AgentJobFinder runs the job-finder agent for a single company
type AgentJobFinder struct {
	Agent Runner
}

type openingOutput struct {
	Status             string `json:"status"`
	Title              string `json:"title"`
	ExperienceRequired string `json:"experience_required"`
	Location           string `json:"location"`
	ApplicationLink    string `json:"application_link"`
	Notes              string `json:"notes"`
}

// FindOpening returns the opening reported for the company
func (f *AgentJobFinder) FindOpening(ctx context.Context, in StageInput, company types.CompanyRecord) (types.JobOpening, error) {
	var out openingOutput
	_, err := f.Agent.Run(ctx, agent.Input{
		Query:   in.Query,
		Subject: company.Name,
		Task: task("task-opening", map[string]string{
			"Role":            in.Query.Role,
			"Experience":      in.Query.ExperienceLevel.Label(),
			"Company":         company.Name,
			"CompanyLocation": company.Location,
		}),
		Vars:    map[string]string{"Company": company.Name},
		Prior:   in.Prior,
		History: in.History,
	}, schemas.Opening, &out)
	if err != nil {
		return types.JobOpening{}, err
	}

	opening := types.JobOpening{
		CompanyID:       company.ID,
		CompanyName:     company.Name,
		Title:           strings.TrimSpace(out.Title),
		Location:        strings.TrimSpace(out.Location),
		ApplicationLink: strings.TrimSpace(out.ApplicationLink),
		Status:          types.OpeningStatus(out.Status),
		Notes:           out.Notes,
	}
	if level, err := types.ParseExperienceLevel(out.ExperienceRequired); err == nil {
		opening.ExperienceRequired = level
	}
	return opening, nil
}

// AgentCommuteAdvisor runs the commute-guide agent for a found opening
type AgentCommuteAdvisor struct {
	Agent Runner
}

type commuteOutput struct {
	Landmarks      []types.Landmark      `json:"landmarks"`
	TransitOptions []types.TransitOption `json:"transit_options"`
	CabOptions     []types.CabOption     `json:"cab_options"`
	OtherOptions   []types.OtherOption   `json:"other_options"`
	Notes          string                `json:"notes"`
}

// GuideCommute returns the guide for the opening's workplace
func (a *AgentCommuteAdvisor) GuideCommute(ctx context.Context, in StageInput, opening types.JobOpening) (types.CommuteGuide, error) {
	workplace := opening.Location
	if workplace == "" {
		workplace = in.Query.Location
	}
	var out commuteOutput
	_, err := a.Agent.Run(ctx, agent.Input{
		Query:   in.Query,
		Subject: opening.CompanyName,
		Task: task("task-commute", map[string]string{
			"Company":   opening.CompanyName,
			"Workplace": workplace,
			"Title":     opening.Title,
		}),
		Vars:    map[string]string{"Company": opening.CompanyName, "Workplace": workplace},
		Prior:   in.Prior,
		History: in.History,
	}, schemas.Commute, &out)
	if err != nil {
		return types.CommuteGuide{}, err
	}

	return types.CommuteGuide{
		OpeningID:      opening.ID,
		CompanyID:      opening.CompanyID,
		Landmarks:      out.Landmarks,
		TransitOptions: out.TransitOptions,
		CabOptions:     out.CabOptions,
		OtherOptions:   out.OtherOptions,
		Notes:          out.Notes,
	}, nil
}

func task(key string, vars map[string]string) string {
	return prompts.Format(prompts.MustGet(prompts.PipelineFile, key), vars)
}
