// Package report renders a pipeline result as terminal text or Markdown.
package report

import (
	"fmt"
	"strings"

	"github.com/jonathan/jobscout/internal/types"
)

// Mode controls the output format.
type Mode int

const (
	ModeText     Mode = iota // Fixed-width terminal tables
	ModeMarkdown             // GitHub-flavoured Markdown tables
)

// ParseMode maps "text" and "markdown" (or "md") onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return ModeText, nil
	case "markdown", "md":
		return ModeMarkdown, nil
	default:
		return ModeText, fmt.Errorf("unknown report format %q", s)
	}
}

const cellWidth = 48

// Render formats every section of a result: companies per category, openings,
// one commute guide per found opening, annotations and commentary.
func Render(r *types.PipelineResult, m Mode) string {
	var sb strings.Builder
	h := headings(m)

	fmt.Fprintf(&sb, "%sJob search: %s (%s) in %s\n", h.title, r.Query.Role, r.Query.ExperienceLevel.Label(), r.Query.Location)
	fmt.Fprintf(&sb, "Strategy: %s, outcome: %s\n\n", r.Strategy, r.Outcome)

	if len(r.Companies) == 0 {
		fmt.Fprintf(&sb, "%s\n", types.NoCompaniesFound)
	}
	for _, cat := range types.Categories() {
		companies := r.CompaniesIn(cat)
		if len(companies) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s%s companies\n\n", h.section, cat.Label())
		w := newTable(m, "#", "Company", "Location", "Industry")
		for i, c := range companies {
			w.AppendRow([]any{i + 1, c.Name, orDash(c.Location), orDash(c.Industry)})
		}
		wrapColumns(w, cellWidth, 2, 3, 4)
		sb.WriteString(renderTable(m, w))
		sb.WriteString("\n\n")
	}

	if len(r.Openings) > 0 {
		fmt.Fprintf(&sb, "%sOpenings\n\n", h.section)
		w := newTable(m, "Company", "Title", "Experience", "Location", "Apply")
		for _, o := range r.Openings {
			if !o.Found() {
				w.AppendRow([]any{o.CompanyName, types.NoRelevantOpenings, "-", "-", "-"})
				continue
			}
			w.AppendRow([]any{o.CompanyName, o.Title, orDash(o.ExperienceRequired.Label()), orDash(o.Location), orDash(o.ApplicationLink)})
		}
		wrapColumns(w, cellWidth, 1, 2, 4, 5)
		sb.WriteString(renderTable(m, w))
		sb.WriteString("\n\n")
	}

	for _, o := range r.FoundOpenings() {
		g, ok := r.GuideFor(o.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%sCommute to %s (%s)\n\n", h.section, o.CompanyName, o.Title)
		renderGuide(&sb, g, m, h)
	}

	for _, a := range r.Annotations {
		fmt.Fprintf(&sb, "%s\n", a)
	}
	if r.Commentary != "" {
		if len(r.Annotations) > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%sSummary\n\n%s\n", h.section, r.Commentary)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func renderGuide(sb *strings.Builder, g types.CommuteGuide, m Mode, h heading) {
	if len(g.Landmarks) > 0 {
		fmt.Fprintf(sb, "%sNearby landmarks\n\n", h.sub)
		w := newTable(m, "Landmark", "Kind", "Distance")
		for _, l := range g.Landmarks {
			w.AppendRow([]any{l.Name, orDash(l.Kind), orDash(l.Distance)})
		}
		sb.WriteString(renderTable(m, w) + "\n\n")
	}
	if len(g.TransitOptions) > 0 {
		fmt.Fprintf(sb, "%sPublic transport\n\n", h.sub)
		w := newTable(m, "Mode", "Route", "Fare", "Duration")
		for _, t := range g.TransitOptions {
			w.AppendRow([]any{t.Mode, orDash(t.Route), orDash(t.Fare), orDash(t.Duration)})
		}
		wrapColumns(w, cellWidth, 2)
		sb.WriteString(renderTable(m, w) + "\n\n")
	}
	if len(g.CabOptions) > 0 {
		fmt.Fprintf(sb, "%sCabs\n\n", h.sub)
		w := newTable(m, "Provider", "Fare estimate", "Duration")
		for _, c := range g.CabOptions {
			w.AppendRow([]any{c.Provider, orDash(c.FareEstimate), orDash(c.Duration)})
		}
		sb.WriteString(renderTable(m, w) + "\n\n")
	}
	if len(g.OtherOptions) > 0 {
		fmt.Fprintf(sb, "%sOther options\n\n", h.sub)
		for _, o := range g.OtherOptions {
			fmt.Fprintf(sb, "- %s: %s\n", o.Mode, orDash(o.Details))
		}
		sb.WriteString("\n")
	}
	if len(g.Unavailable) > 0 {
		fmt.Fprintf(sb, "Information not available: %s\n", strings.Join(g.Unavailable, ", "))
	}
	if g.Notes != "" {
		fmt.Fprintf(sb, "Notes: %s\n", g.Notes)
	}
	sb.WriteString("\n")
}

type heading struct {
	title, section, sub string
}

func headings(m Mode) heading {
	if m == ModeMarkdown {
		return heading{title: "# ", section: "## ", sub: "### "}
	}
	return heading{}
}

// Commentary summarizes a result in a few plain sentences.
// It only restates what the result holds.
func Commentary(r *types.PipelineResult) string {
	q := r.Query
	switch r.Outcome {
	case types.OutcomeNoDataFound:
		return fmt.Sprintf("No companies were found in %s, so no openings or travel options could be searched. No data found.", q.Location)
	case types.OutcomeNoOpeningsFound:
		return fmt.Sprintf("Searched %d companies in %s, but none had a relevant %s opening for %s candidates. No travel information computed.",
			len(r.Companies), q.Location, q.Role, strings.ToLower(q.ExperienceLevel.Label()))
	}

	found := r.FoundOpenings()
	names := make([]string, 0, len(found))
	var gaps []string
	for _, o := range found {
		names = append(names, fmt.Sprintf("%s (%s)", o.CompanyName, o.Title))
		if g, ok := r.GuideFor(o.ID); ok && len(g.Unavailable) > 0 {
			gaps = append(gaps, fmt.Sprintf("%s: %s", o.CompanyName, strings.Join(g.Unavailable, ", ")))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d relevant %s %s across %d companies in %s: %s.",
		len(found), q.Role, plural(len(found), "opening", "openings"), len(r.Companies), q.Location, strings.Join(names, "; "))
	sb.WriteString(" Commute guidance is included for each opening.")
	if len(gaps) > 0 {
		fmt.Fprintf(&sb, " Some travel information is not available (%s).", strings.Join(gaps, "; "))
	}
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
