// Package pipeline orchestrates the three search stages: company discovery,
// opening lookup and commute guidance.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jobscout/internal/agent"
	"github.com/jonathan/jobscout/internal/llm"
	"github.com/jonathan/jobscout/internal/logging"
	"github.com/jonathan/jobscout/internal/pipeline/steps"
	"github.com/jonathan/jobscout/internal/prompts"
	"github.com/jonathan/jobscout/internal/report"
	"github.com/jonathan/jobscout/internal/types"
)

// travelUnavailable is the note on a guide whose stage never produced valid output.
const travelUnavailable = "Travel information is not available for this workplace."

var validate = validator.New()

// Response is what one search returns to a shell
type Response struct {
	RunID     string                `json:"run_id"`
	FinalText string                `json:"response"`
	Result    *types.PipelineResult `json:"result"`
}

// Orchestrator runs the stages of a search in order.
// It holds no per-run state and may serve concurrent runs.
type Orchestrator struct {
	companies CompanyFinder
	jobs      JobFinder
	commute   CommuteAdvisor
	// client parses free-text queries and writes summaries; nil disables both
	client llm.Client
	opts   Options
	log    *slog.Logger
}

// New creates an Orchestrator. Zero option fields fall back to DefaultOptions.
func New(companies CompanyFinder, jobs JobFinder, commute CommuteAdvisor, client llm.Client, opts Options) *Orchestrator {
	return &Orchestrator{
		companies: companies,
		jobs:      jobs,
		commute:   commute,
		client:    client,
		opts:      opts.withDefaults(),
		log:       logging.New("pipeline"),
	}
}

// Options returns the effective options
func (o *Orchestrator) Options() Options {
	return o.opts
}

// CallOption overrides orchestrator options for a single run
type CallOption func(*runState)

// WithProgress sends this run's progress events to cb instead of Options.OnProgress
func WithProgress(cb ProgressCallback) CallOption {
	return func(rs *runState) { rs.onProgress = cb }
}

// WithStrategy runs this search with the given strategy
func WithStrategy(s Strategy) CallOption {
	return func(rs *runState) {
		if s != "" {
			rs.strategy = s
		}
	}
}

type runState struct {
	id         uuid.UUID
	recording  bool
	strategy   Strategy
	onProgress ProgressCallback
	hist       *History
	emitMu     sync.Mutex
}

// Execute parses the query text and runs the search.
func (o *Orchestrator) Execute(ctx context.Context, text string, callOpts ...CallOption) (*Response, error) {
	q, err := o.ParseQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, q, callOpts...)
}

// Run searches for companies, then one opening per company, then one commute guide per
// found opening. A stage starts only after every call of the previous stage returned.
// An unavailable model aborts the run. Stage output that never matched its schema
// degrades only the item it was for.
func (o *Orchestrator) Run(ctx context.Context, q types.Query, callOpts ...CallOption) (*Response, error) {
	if err := q.Validate(); err != nil {
		return nil, &QueryError{Text: q.Raw, Cause: err}
	}

	rs := &runState{
		id:         uuid.New(),
		strategy:   o.opts.Strategy,
		onProgress: o.opts.OnProgress,
		hist:       NewHistory(o.opts.HistoryWindow),
	}
	for _, opt := range callOpts {
		opt(rs)
	}
	o.startRun(ctx, rs, q)
	log := o.log.With("run_id", rs.id.String(), "strategy", string(rs.strategy))
	log.Info("run started", "role", q.Role, "location", q.Location, "experience", q.ExperienceLevel)

	o.save(ctx, rs, steps.StepQuery, q)
	o.emit(rs, steps.StepQuery, fmt.Sprintf("Searching %s roles in %s (%s)", q.Role, q.Location, q.ExperienceLevel.Label()), q)

	result := &types.PipelineResult{
		Query:     q,
		Strategy:  string(rs.strategy),
		Companies: []types.CompanyRecord{},
		Openings:  []types.JobOpening{},
		Guides:    []types.CommuteGuide{},
	}
	if err := o.runStages(ctx, rs, result); err != nil {
		log.Error("run failed", "error", err)
		o.finishRun(ctx, rs, StatusFailed, "")
		return nil, err
	}
	if err := result.CheckIntegrity(o.opts.CompaniesPerCategory); err != nil {
		log.Error("run produced inconsistent result", "error", err)
		o.finishRun(ctx, rs, StatusFailed, "")
		return nil, err
	}

	result.Commentary = o.commentary(ctx, result)
	o.save(ctx, rs, steps.StepResult, result)
	o.emit(rs, steps.StepResult, result.Commentary, result.Outcome)
	o.finishRun(ctx, rs, StatusCompleted, string(result.Outcome))
	log.Info("run finished", "outcome", result.Outcome, "companies", len(result.Companies),
		"found", len(result.FoundOpenings()), "guides", len(result.Guides))

	return &Response{
		RunID:     rs.id.String(),
		FinalText: report.Render(result, report.ModeText),
		Result:    result,
	}, nil
}

func (o *Orchestrator) runStages(ctx context.Context, rs *runState, result *types.PipelineResult) error {
	companies, err := o.findCompanies(ctx, rs, result)
	if err != nil {
		return err
	}
	result.Companies = companies
	o.save(ctx, rs, steps.StepCompanies, companies)
	if len(companies) == 0 {
		result.Outcome = types.OutcomeNoDataFound
		result.Annotations = append(result.Annotations, types.NoCompaniesFound)
		o.emit(rs, steps.StepCompanies, types.NoCompaniesFound, nil)
		return nil
	}

	openings, err := o.findOpenings(ctx, rs, result, companies)
	if err != nil {
		return err
	}
	result.Openings = openings
	o.save(ctx, rs, steps.StepOpenings, openings)
	if len(result.FoundOpenings()) == 0 {
		result.Outcome = types.OutcomeNoOpeningsFound
		result.Annotations = append(result.Annotations, types.NoTravelInfoComputed)
		o.emit(rs, steps.StepOpenings, types.NoTravelInfoComputed, nil)
		return nil
	}

	guides, err := o.guideCommutes(ctx, rs, result)
	if err != nil {
		return err
	}
	result.Guides = guides
	result.Outcome = types.OutcomeComplete
	o.save(ctx, rs, steps.StepGuides, guides)
	return nil
}

// findCompanies searches every category. A category whose answers never pass
// validation contributes no companies and is annotated on result.
func (o *Orchestrator) findCompanies(ctx context.Context, rs *runState, result *types.PipelineResult) ([]types.CompanyRecord, error) {
	q := result.Query
	cats := types.Categories()
	perCategory := make([][]types.CompanyRecord, len(cats))
	degraded := make([]bool, len(cats))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, cat := range cats {
		g.Go(func() error {
			in := StageInput{Query: q}
			if rs.strategy == StrategyCollaborate {
				in.History = rs.hist.Recent()
			}
			records, err := o.companies.FindCompanies(gCtx, in, cat)
			if err != nil {
				if errors.Is(err, agent.ErrSchemaViolation) {
					o.log.Warn("company search degraded to zero results", "category", cat, "error", err)
					degraded[i] = true
					return nil
				}
				return stageFailure(StageCompanyFinder, err)
			}
			perCategory[i] = normalizeCompanies(records, cat, q.Location, o.opts.CompaniesPerCategory)
			o.remember(rs, StageCompanyFinder, cat.Label(), perCategory[i])
			o.emit(rs, steps.StepCompanies, fmt.Sprintf("Found %d %s companies", len(perCategory[i]), cat.Label()), perCategory[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	companies := []types.CompanyRecord{}
	for i, records := range perCategory {
		if degraded[i] {
			result.Annotations = append(result.Annotations, types.CompaniesUnavailable(cats[i]))
		}
		companies = append(companies, records...)
	}
	return companies, nil
}

func (o *Orchestrator) findOpenings(ctx context.Context, rs *runState, result *types.PipelineResult, companies []types.CompanyRecord) ([]types.JobOpening, error) {
	q := result.Query
	openings := make([]types.JobOpening, len(companies))
	degraded := make([]bool, len(companies))
	companiesJSON := toJSON(companies)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, company := range companies {
		g.Go(func() error {
			in := StageInput{Query: q}
			if rs.strategy == StrategyCollaborate {
				in.Prior = []agent.PriorOutput{{Stage: StageCompanyFinder, Content: companiesJSON}}
				in.History = rs.hist.Recent()
			} else {
				in.Prior = []agent.PriorOutput{{Stage: StageCompanyFinder, Content: toJSON(company)}}
			}

			opening, err := o.jobs.FindOpening(gCtx, in, company)
			switch {
			case err == nil:
				opening = normalizeOpening(opening, company, q)
			case errors.Is(err, agent.ErrSchemaViolation):
				o.log.Warn("opening lookup degraded to not found", "company", company.Name, "error", err)
				opening = notFound(company)
				degraded[i] = true
			default:
				return stageFailure(StageJobFinder, err)
			}
			openings[i] = opening
			o.remember(rs, StageJobFinder, company.Name, opening)
			o.emit(rs, steps.StepOpenings, openingMessage(opening), opening)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, company := range companies {
		if degraded[i] {
			result.Annotations = append(result.Annotations, types.OpeningUnavailable(company.Name))
		}
	}
	return openings, nil
}

func (o *Orchestrator) guideCommutes(ctx context.Context, rs *runState, result *types.PipelineResult) ([]types.CommuteGuide, error) {
	found := result.FoundOpenings()
	guides := make([]types.CommuteGuide, len(found))
	companiesJSON := toJSON(result.Companies)
	openingsJSON := toJSON(result.Openings)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i, opening := range found {
		g.Go(func() error {
			in := StageInput{Query: result.Query}
			if rs.strategy == StrategyCollaborate {
				in.Prior = []agent.PriorOutput{
					{Stage: StageCompanyFinder, Content: companiesJSON},
					{Stage: StageJobFinder, Content: openingsJSON},
				}
				in.History = rs.hist.Recent()
			} else {
				in.Prior = []agent.PriorOutput{{Stage: StageJobFinder, Content: toJSON(opening)}}
			}

			guide, err := o.commute.GuideCommute(gCtx, in, opening)
			switch {
			case err == nil:
			case errors.Is(err, agent.ErrSchemaViolation):
				o.log.Warn("commute guide degraded to unavailable", "company", opening.CompanyName, "error", err)
				guide = types.CommuteGuide{Notes: travelUnavailable}
			default:
				return stageFailure(StageCommuteGuide, err)
			}
			guides[i] = normalizeGuide(guide, opening)
			o.remember(rs, StageCommuteGuide, opening.CompanyName, guides[i])
			o.emit(rs, steps.StepGuides, fmt.Sprintf("Computed commute options for %s", opening.CompanyName), guides[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return guides, nil
}

// stageFailure keeps cancellation and upstream errors as they are and classifies
// anything else a stage returns as upstream unavailability.
func stageFailure(stage string, err error) error {
	if errors.Is(err, agent.ErrUpstreamUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &agent.UpstreamError{Stage: stage, Cause: err}
}

// normalizeCompanies trims names, drops duplicates within the category, caps the
// list and derives IDs. Records without a location take the query location.
func normalizeCompanies(records []types.CompanyRecord, cat types.Category, location string, limit int) []types.CompanyRecord {
	out := []types.CompanyRecord{}
	seen := make(map[string]bool, len(records))
	for _, c := range records {
		name := strings.Join(strings.Fields(c.Name), " ")
		if types.Slug(name) == "" {
			continue
		}
		id := types.CompanyID(cat, name)
		if seen[id] {
			continue
		}
		seen[id] = true

		c.ID = id
		c.Name = name
		c.Category = cat
		c.Location = strings.TrimSpace(c.Location)
		if c.Location == "" {
			c.Location = location
		}
		c.Industry = strings.TrimSpace(c.Industry)
		c.Notes = strings.TrimSpace(c.Notes)
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

// normalizeOpening binds the opening to the company it was looked up for.
// Openings without a title or for another experience level count as not found.
func normalizeOpening(o types.JobOpening, company types.CompanyRecord, q types.Query) types.JobOpening {
	if o.Status != types.OpeningFound || strings.TrimSpace(o.Title) == "" {
		return notFound(company)
	}
	if o.ExperienceRequired != "" && o.ExperienceRequired != q.ExperienceLevel {
		return notFound(company)
	}

	o.ID = types.OpeningID(company.ID)
	o.CompanyID = company.ID
	o.CompanyName = company.Name
	o.Title = strings.TrimSpace(o.Title)
	if o.Location == "" {
		o.Location = company.Location
	}
	if o.ApplicationLink != "" && validate.Var(o.ApplicationLink, "url") != nil {
		o.ApplicationLink = ""
	}
	return o
}

func notFound(company types.CompanyRecord) types.JobOpening {
	return types.JobOpening{
		ID:          types.OpeningID(company.ID),
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Status:      types.OpeningNotFound,
		Notes:       types.NoRelevantOpenings,
	}
}

func normalizeGuide(g types.CommuteGuide, opening types.JobOpening) types.CommuteGuide {
	g.OpeningID = opening.ID
	g.CompanyID = opening.CompanyID
	if g.Landmarks == nil {
		g.Landmarks = []types.Landmark{}
	}
	if g.TransitOptions == nil {
		g.TransitOptions = []types.TransitOption{}
	}
	if g.CabOptions == nil {
		g.CabOptions = []types.CabOption{}
	}
	g.MarkUnavailable()
	return g
}

func openingMessage(o types.JobOpening) string {
	if !o.Found() {
		return fmt.Sprintf("%s: %s", o.CompanyName, types.NoRelevantOpenings)
	}
	return fmt.Sprintf("%s: %s", o.CompanyName, o.Title)
}

func (o *Orchestrator) commentary(ctx context.Context, r *types.PipelineResult) string {
	base := report.Commentary(r)
	if !o.opts.Summarize || o.client == nil {
		return base
	}
	prompt := prompts.Format(prompts.MustGet(prompts.PipelineFile, "summarize-result"), map[string]string{
		"Result": toJSON(r),
	})
	summary, err := o.client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil || strings.TrimSpace(summary) == "" {
		o.log.Warn("summary failed, using built-in commentary", "error", err)
		return base
	}
	return strings.TrimSpace(summary)
}

// remember adds a stage output to the run history.
func (o *Orchestrator) remember(rs *runState, stage, subject string, output any) {
	rs.hist.Add(agent.Interaction{Stage: stage, Subject: subject, Output: toJSON(output)})
}

func (o *Orchestrator) emit(rs *runState, step, message string, content any) {
	if rs.onProgress == nil {
		return
	}
	rs.emitMu.Lock()
	defer rs.emitMu.Unlock()
	rs.onProgress(ProgressEvent{
		Step:     step,
		Category: steps.CategoryOf(step),
		Message:  message,
		RunID:    rs.id.String(),
		Content:  content,
	})
}

func (o *Orchestrator) startRun(ctx context.Context, rs *runState, q types.Query) {
	if o.opts.Recorder == nil {
		return
	}
	id, err := o.opts.Recorder.CreateRun(ctx, q, string(rs.strategy))
	if err != nil {
		o.log.Warn("failed to record run, continuing without persistence", "error", err)
		return
	}
	rs.id = id
	rs.recording = true
}

func (o *Orchestrator) save(ctx context.Context, rs *runState, step string, content any) {
	if !rs.recording {
		return
	}
	if err := o.opts.Recorder.SaveArtifact(ctx, rs.id, step, content); err != nil {
		o.log.Warn("failed to save artifact", "run_id", rs.id.String(), "step", step, "error", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, rs *runState, status, outcome string) {
	if !rs.recording {
		return
	}
	if err := o.opts.Recorder.CompleteRun(context.WithoutCancel(ctx), rs.id, status, outcome); err != nil {
		o.log.Warn("failed to complete run record", "run_id", rs.id.String(), "error", err)
	}
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
