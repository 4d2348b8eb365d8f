// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/jobscout/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// fmt pads by rune, so truncate by rune too
		if r := []rune(line); len(r) > boxWidth-4 {
			line = string(r[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProgress prints one pipeline progress event, boxing the stage outputs it knows.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(step, message string, content any) {
	switch c := content.(type) {
	case types.Query:
		p.PrintQuery(c)
	case []types.CompanyRecord:
		p.PrintCompanies(message, c)
	case types.JobOpening:
		p.PrintOpening(c)
	case types.CommuteGuide:
		p.PrintGuide(c)
	default:
		fmt.Fprintf(p.out, "[%s] %s\n", step, message)
	}
}

// PrintQuery outputs the structured query a run was started with.
func (p *Printer) PrintQuery(q types.Query) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Role:       %s\n", q.Role)
	fmt.Fprintf(&sb, "Experience: %s\n", q.ExperienceLevel.Label())
	fmt.Fprintf(&sb, "Location:   %s", q.Location)
	p.printBox("SEARCH QUERY", sb.String())
}

// PrintCompanies outputs the first companies of one category.
func (p *Printer) PrintCompanies(title string, companies []types.CompanyRecord) {
	if len(companies) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(companies), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := companies[i]
		sb.WriteString(fmt.Sprintf("%2d. %s", i+1, c.Name))
		if c.Location != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", c.Location))
		}
		sb.WriteString("\n")
	}
	if len(companies) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(companies)-maxItemsToShow))
	}

	p.printBox(strings.ToUpper(title), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOpening prints a one-line result for not-found openings and a box for found ones.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintOpening(o types.JobOpening) {
	if !o.Found() {
		fmt.Fprintf(p.out, "  ✗ %s: %s\n", o.CompanyName, types.NoRelevantOpenings)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title:      %s\n", o.Title)
	if o.ExperienceRequired != "" {
		fmt.Fprintf(&sb, "Experience: %s\n", o.ExperienceRequired.Label())
	}
	if o.Location != "" {
		fmt.Fprintf(&sb, "Location:   %s\n", o.Location)
	}
	if o.ApplicationLink != "" {
		fmt.Fprintf(&sb, "Apply:      %s\n", o.ApplicationLink)
	}
	p.printBox("OPENING AT "+strings.ToUpper(o.CompanyName), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGuide outputs the commute guide of one opening.
func (p *Printer) PrintGuide(g types.CommuteGuide) {
	var sb strings.Builder

	if len(g.Landmarks) > 0 {
		sb.WriteString("Landmarks:\n")
		for _, l := range g.Landmarks[:min(len(g.Landmarks), maxItemsToShow)] {
			sb.WriteString(fmt.Sprintf("  • %s", l.Name))
			if l.Distance != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", l.Distance))
			}
			sb.WriteString("\n")
		}
	}
	if len(g.TransitOptions) > 0 {
		sb.WriteString("Public transport:\n")
		for _, t := range g.TransitOptions[:min(len(g.TransitOptions), maxItemsToShow)] {
			sb.WriteString(fmt.Sprintf("  • %s %s %s\n", t.Mode, t.Route, t.Fare))
		}
	}
	if len(g.CabOptions) > 0 {
		sb.WriteString("Cabs:\n")
		for _, c := range g.CabOptions[:min(len(g.CabOptions), maxItemsToShow)] {
			sb.WriteString(fmt.Sprintf("  • %s %s\n", c.Provider, c.FareEstimate))
		}
	}
	if len(g.Unavailable) > 0 {
		sb.WriteString(fmt.Sprintf("Not available: %s\n", strings.Join(g.Unavailable, ", ")))
	}

	p.printBox("COMMUTE "+strings.ToUpper(g.CompanyID), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOutcome outputs the final outcome and annotations of a run.
func (p *Printer) PrintOutcome(r *types.PipelineResult) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Outcome:   %s\n", r.Outcome)
	fmt.Fprintf(&sb, "Companies: %d\n", len(r.Companies))
	fmt.Fprintf(&sb, "Found:     %d of %d\n", len(r.FoundOpenings()), len(r.Openings))
	fmt.Fprintf(&sb, "Guides:    %d\n", len(r.Guides))
	for _, a := range r.Annotations {
		fmt.Fprintf(&sb, "⚠ %s\n", a)
	}
	p.printBox("RUN OUTCOME", strings.TrimSuffix(sb.String(), "\n"))
}
