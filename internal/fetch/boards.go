package fetch

import (
	"net/url"
	"strings"
)

// Board is a job board or applicant tracking system with known page structure
type Board string

const (
	BoardNaukri     Board = "naukri"
	BoardLinkedIn   Board = "linkedin"
	BoardIndeed     Board = "indeed"
	BoardGreenhouse Board = "greenhouse"
	BoardLever      Board = "lever"
	BoardWorkday    Board = "workday"
	BoardUnknown    Board = "unknown"
)

var boardHosts = []struct {
	suffix string
	board  Board
}{
	{"naukri.com", BoardNaukri},
	{"linkedin.com", BoardLinkedIn},
	{"indeed.com", BoardIndeed},
	{"indeed.co.in", BoardIndeed},
	{"greenhouse.io", BoardGreenhouse},
	{"lever.co", BoardLever},
	{"myworkdayjobs.com", BoardWorkday},
	{"workday.com", BoardWorkday},
}

// DetectBoard identifies the job board serving a URL.
func DetectBoard(urlStr string) Board {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return BoardUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range boardHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.board
		}
	}
	return BoardUnknown
}

// BoardContentSelectors returns the selectors holding the job description on a board.
func BoardContentSelectors(board Board) []string {
	switch board {
	case BoardNaukri:
		return []string{".styles_JDC__dang-inner-html__h0K4t", ".job-desc", "section.job-desc", "main"}
	case BoardLinkedIn:
		return []string{".show-more-less-html__markup", ".description__text", "main"}
	case BoardIndeed:
		return []string{"#jobDescriptionText", ".jobsearch-JobComponent", "main"}
	case BoardGreenhouse:
		return []string{".job__description", "#content", ".job-post-container"}
	case BoardLever:
		return []string{".posting-page", ".posting-description", ".content"}
	case BoardWorkday:
		return []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']", ".job-description"}
	default:
		return JobPostingSelectors()
	}
}

// BoardNoiseSelectors returns elements to strip before extracting text.
func BoardNoiseSelectors(board Board) []string {
	common := []string{
		"form",
		".apply-button-container",
		".cookie-consent",
		".social-share",
		".similar-jobs",
		"[role='dialog']",
	}
	switch board {
	case BoardLinkedIn:
		return append(common, ".top-card-layout__cta-container", ".sign-in-modal")
	case BoardNaukri:
		return append(common, ".styles_jhc__apply-button-container__5Bqnb", ".naukri-footer")
	default:
		return common
	}
}
