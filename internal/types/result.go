package types

import (
	"fmt"
	"strings"
)

// Outcome classifies how far a pipeline run got
type Outcome string

const (
	// OutcomeComplete means commute guidance was computed for the found openings
	OutcomeComplete Outcome = "complete"
	// OutcomeNoDataFound means the company search returned nothing and later stages never ran
	OutcomeNoDataFound Outcome = "no_data_found"
	// OutcomeNoOpeningsFound means no company had a matching opening and commute guidance was skipped
	OutcomeNoOpeningsFound Outcome = "no_openings_found"
)

// Annotations attached to partial results.
const (
	NoCompaniesFound     = "No companies found"
	NoTravelInfoComputed = "No travel information computed."
)

// CompaniesUnavailable annotates a category whose company search produced no usable answer.
func CompaniesUnavailable(c Category) string {
	return fmt.Sprintf("%s companies could not be retrieved", c.Label())
}

// OpeningUnavailable annotates a company whose openings could not be checked.
func OpeningUnavailable(company string) string {
	return fmt.Sprintf("Openings at %s could not be retrieved", company)
}

// DefaultCompaniesPerCategory is the number of companies searched for per category.
const DefaultCompaniesPerCategory = 10

// PipelineResult aggregates everything a run produced
type PipelineResult struct {
	Query       Query           `json:"query"`
	Strategy    string          `json:"strategy"`
	Outcome     Outcome         `json:"outcome"`
	Companies   []CompanyRecord `json:"companies"`
	Openings    []JobOpening    `json:"openings"`
	Guides      []CommuteGuide  `json:"guides"`
	Annotations []string        `json:"annotations,omitempty"`
	Commentary  string          `json:"commentary,omitempty"`
}

// CompanyByID returns the company with the given ID
func (r *PipelineResult) CompanyByID(id string) (CompanyRecord, bool) {
	for _, c := range r.Companies {
		if c.ID == id {
			return c, true
		}
	}
	return CompanyRecord{}, false
}

// OpeningByID returns the opening with the given ID
func (r *PipelineResult) OpeningByID(id string) (JobOpening, bool) {
	for _, o := range r.Openings {
		if o.ID == id {
			return o, true
		}
	}
	return JobOpening{}, false
}

// FoundOpenings returns the openings with status found, in company order
func (r *PipelineResult) FoundOpenings() []JobOpening {
	var found []JobOpening
	for _, o := range r.Openings {
		if o.Found() {
			found = append(found, o)
		}
	}
	return found
}

// GuideFor returns the commute guide computed for an opening
func (r *PipelineResult) GuideFor(openingID string) (CommuteGuide, bool) {
	for _, g := range r.Guides {
		if g.OpeningID == openingID {
			return g, true
		}
	}
	return CommuteGuide{}, false
}

// CompaniesIn returns the companies of one category, in discovery order
func (r *PipelineResult) CompaniesIn(category Category) []CompanyRecord {
	var out []CompanyRecord
	for _, c := range r.Companies {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// IntegrityError lists every referential problem found in a result
type IntegrityError struct {
	Problems []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("pipeline result integrity: %s", strings.Join(e.Problems, "; "))
}

// CheckIntegrity verifies the cross-stage references of a result.
// Openings must reference companies of the same run, guides must reference
// found openings, and no category may hold more than perCategory companies.
func (r *PipelineResult) CheckIntegrity(perCategory int) error {
	var problems []string

	companies := make(map[string]bool, len(r.Companies))
	counts := make(map[Category]int)
	for _, c := range r.Companies {
		if companies[c.ID] {
			problems = append(problems, fmt.Sprintf("duplicate company %s", c.ID))
		}
		companies[c.ID] = true
		counts[c.Category]++
	}
	for cat, n := range counts {
		if perCategory > 0 && n > perCategory {
			problems = append(problems, fmt.Sprintf("category %s has %d companies (max %d)", cat, n, perCategory))
		}
	}

	openings := make(map[string]JobOpening, len(r.Openings))
	for _, o := range r.Openings {
		if !companies[o.CompanyID] {
			problems = append(problems, fmt.Sprintf("opening %s references unknown company %s", o.ID, o.CompanyID))
		}
		openings[o.ID] = o
	}

	for _, g := range r.Guides {
		o, ok := openings[g.OpeningID]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("guide references unknown opening %s", g.OpeningID))
		case !o.Found():
			problems = append(problems, fmt.Sprintf("guide references opening %s with status %s", g.OpeningID, o.Status))
		}
	}

	if len(problems) > 0 {
		return &IntegrityError{Problems: problems}
	}
	return nil
}
