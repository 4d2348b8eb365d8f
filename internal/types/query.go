// Package types provides type definitions for structured data used throughout the jobscout system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ExperienceLevel is the seniority bracket a search is run for
type ExperienceLevel string

const (
	// ExperienceFresher covers graduates and entry-level candidates
	ExperienceFresher ExperienceLevel = "fresher"
	// ExperienceExperienced covers candidates with prior industry experience
	ExperienceExperienced ExperienceLevel = "experienced"
)

// Label returns the display form used in composed queries and reports
func (l ExperienceLevel) Label() string {
	switch l {
	case ExperienceFresher:
		return "Fresher"
	case ExperienceExperienced:
		return "Experienced"
	default:
		return string(l)
	}
}

var yearsPattern = regexp.MustCompile(`(\d+)\s*\+?\s*(?:-\s*\d+\s*)?(?:years?|yrs?)`)

// ParseExperienceLevel maps free-form experience text onto a level.
// It recognises the two labels, common synonyms, and "N years" phrasing.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "fresher", "freshers", "fresh", "entry", "entry level", "entry-level", "graduate", "intern", "junior":
		return ExperienceFresher, nil
	case "experienced", "experience", "senior", "mid", "mid level", "mid-level", "lead":
		return ExperienceExperienced, nil
	}
	if m := yearsPattern.FindStringSubmatch(v); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			if n == 0 {
				return ExperienceFresher, nil
			}
			return ExperienceExperienced, nil
		}
	}
	return "", fmt.Errorf("unrecognised experience level %q", s)
}

// Query is the structured form of a user's job search.
// It is built once at pipeline entry and never changed afterwards.
type Query struct {
	Role            string          `json:"role" validate:"required,max=200"`
	ExperienceLevel ExperienceLevel `json:"experience_level" validate:"required,oneof=fresher experienced"`
	Location        string          `json:"location" validate:"required,max=200"`
	// Raw is the text the query was parsed from, if any
	Raw string `json:"raw,omitempty"`
}

// NewQuery builds a Query from form fields, normalising whitespace and the experience label.
func NewQuery(role, experience, location string) (Query, error) {
	level, err := ParseExperienceLevel(experience)
	if err != nil {
		return Query{}, err
	}
	q := Query{
		Role:            collapseSpace(role),
		ExperienceLevel: level,
		Location:        collapseSpace(location),
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	q.Raw = q.Compose()
	return q, nil
}

// Validate validates the Query using the validator.
func (q Query) Validate() error {
	validate := validator.New()
	return validate.Struct(q)
}

// Compose renders the query as the sentence a dashboard form submits.
func (q Query) Compose() string {
	return fmt.Sprintf(
		"I want to search for a %s job in %s with %s experience and travel options from main points like bus stand, railway station, etc.",
		q.Role, q.Location, q.ExperienceLevel.Label())
}

var composedPattern = regexp.MustCompile(`(?i)search for an? (.+?) job in (.+?) with (.+?) experience`)

// ParseComposed recovers a Query from text produced by Compose.
// The boolean is false when the text does not follow the composed shape.
func ParseComposed(text string) (Query, bool) {
	m := composedPattern.FindStringSubmatch(text)
	if m == nil {
		return Query{}, false
	}
	q, err := NewQuery(m[1], m[3], m[2])
	if err != nil {
		return Query{}, false
	}
	q.Raw = strings.TrimSpace(text)
	return q, true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and joins its alphanumeric runs with hyphens.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
