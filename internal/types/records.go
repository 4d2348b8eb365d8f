package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Category groups companies the way the company search is split
type Category string

const (
	CategoryStartup      Category = "startup"
	CategoryMNC          Category = "mnc"
	CategoryProductBased Category = "product_based"
)

// Categories returns every category in report order.
func Categories() []Category {
	return []Category{CategoryStartup, CategoryMNC, CategoryProductBased}
}

// Label returns the heading used for the category in reports and prompts
func (c Category) Label() string {
	switch c {
	case CategoryStartup:
		return "Startup"
	case CategoryMNC:
		return "MNC"
	case CategoryProductBased:
		return "Product-based"
	default:
		return string(c)
	}
}

// CompanyRecord is one company discovered for the query location
type CompanyRecord struct {
	ID       string   `json:"id" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Category Category `json:"category" validate:"required,oneof=startup mnc product_based"`
	Location string   `json:"location"`
	Industry string   `json:"industry,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// CompanyID derives the stable identifier for a company within a category.
func CompanyID(category Category, name string) string {
	return fmt.Sprintf("%s-%s", category, Slug(name))
}

// OpeningStatus says whether a matching opening was found at a company
type OpeningStatus string

const (
	OpeningFound    OpeningStatus = "found"
	OpeningNotFound OpeningStatus = "not_found"
)

// NoRelevantOpenings is recorded for every company without a matching opening.
const NoRelevantOpenings = "No relevant openings found"

// JobOpening is the outcome of looking for a matching role at one company.
// Exactly one JobOpening exists per CompanyRecord in a run.
type JobOpening struct {
	ID                 string          `json:"id" validate:"required"`
	CompanyID          string          `json:"company_id" validate:"required"`
	CompanyName        string          `json:"company_name"`
	Title              string          `json:"title,omitempty" validate:"required_if=Status found"`
	ExperienceRequired ExperienceLevel `json:"experience_required,omitempty"`
	Location           string          `json:"location,omitempty"`
	ApplicationLink    string          `json:"application_link,omitempty" validate:"omitempty,url"`
	Status             OpeningStatus   `json:"status" validate:"required,oneof=found not_found"`
	Notes              string          `json:"notes,omitempty"`
}

// OpeningID derives the stable identifier of the opening looked up for a company.
func OpeningID(companyID string) string {
	return "opening-" + companyID
}

// Found reports whether the opening is usable for commute guidance
func (o JobOpening) Found() bool {
	return o.Status == OpeningFound
}

// Landmark is a transport hub near the workplace
type Landmark struct {
	Name     string `json:"name" validate:"required"`
	Kind     string `json:"kind,omitempty"`
	Distance string `json:"distance,omitempty"`
}

// TransitOption is a public transport route
type TransitOption struct {
	Mode     string `json:"mode" validate:"required"`
	Route    string `json:"route,omitempty"`
	Fare     string `json:"fare,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// CabOption is a ride-hailing estimate
type CabOption struct {
	Provider     string `json:"provider" validate:"required"`
	FareEstimate string `json:"fare_estimate,omitempty"`
	Duration     string `json:"duration,omitempty"`
}

// OtherOption covers bike rentals, auto-rickshaws and similar
type OtherOption struct {
	Mode    string `json:"mode" validate:"required"`
	Details string `json:"details,omitempty"`
}

// Commute guide sections that can be reported as unavailable.
const (
	SectionLandmarks = "landmarks"
	SectionTransit   = "transit"
	SectionCabs      = "cabs"
	SectionOther     = "other"
)

// CommuteGuide describes how to reach the workplace of one Found opening
type CommuteGuide struct {
	OpeningID      string          `json:"opening_id" validate:"required"`
	CompanyID      string          `json:"company_id" validate:"required"`
	Landmarks      []Landmark      `json:"landmarks" validate:"dive"`
	TransitOptions []TransitOption `json:"transit_options" validate:"dive"`
	CabOptions     []CabOption     `json:"cab_options" validate:"dive"`
	OtherOptions   []OtherOption   `json:"other_options,omitempty" validate:"dive"`
	// Unavailable names the sections the guide has no information for
	Unavailable []string `json:"unavailable,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// MarkUnavailable records every empty section as unavailable, replacing any previous list.
func (g *CommuteGuide) MarkUnavailable() {
	g.Unavailable = nil
	if len(g.Landmarks) == 0 {
		g.Unavailable = append(g.Unavailable, SectionLandmarks)
	}
	if len(g.TransitOptions) == 0 {
		g.Unavailable = append(g.Unavailable, SectionTransit)
	}
	if len(g.CabOptions) == 0 {
		g.Unavailable = append(g.Unavailable, SectionCabs)
	}
	if len(g.OtherOptions) == 0 {
		g.Unavailable = append(g.Unavailable, SectionOther)
	}
}

// Validate validates the record using the validator.
func (c *CompanyRecord) Validate() error {
	return validator.New().Struct(c)
}

// Validate validates the opening using the validator.
func (o *JobOpening) Validate() error {
	return validator.New().Struct(o)
}

// Validate validates the guide using the validator.
func (g *CommuteGuide) Validate() error {
	return validator.New().Struct(g)
}
