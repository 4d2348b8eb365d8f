package fetch

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxLinks bounds how many links a page read reports.
const maxLinks = 15

// Link is an anchor that likely leads to an opening or an application form.
type Link struct {
	Text string
	URL  string
}

var jobLinkPattern = regexp.MustCompile(`(?i)\b(apply|career|careers|job|jobs|opening|openings|position|positions|vacanc|hiring|join us|requisition)`)

// ExtractLinks returns the job-related links of a page as absolute http(s) URLs,
// in document order and without duplicates. Relative links resolve against base.
func ExtractLinks(html, base string) []Link {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []Link
	seen := make(map[string]bool)
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		text := strings.Join(strings.Fields(a.Text()), " ")
		if !jobLinkPattern.MatchString(text) && !jobLinkPattern.MatchString(href) {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := baseURL.ResolveReference(ref)
		abs.Fragment = ""
		if (abs.Scheme != "http" && abs.Scheme != "https") || abs.Host == "" || seen[abs.String()] {
			return true
		}
		seen[abs.String()] = true
		links = append(links, Link{Text: text, URL: abs.String()})
		return len(links) < maxLinks
	})
	return links
}
