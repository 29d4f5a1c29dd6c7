package linkedin

import (
	"fmt"
	"regexp"
	"strings"
)

//search form inputs, most specific first
var (
	titleInputSelectors = []string{
		`input[data-test-id="jobs-search-box-keyword-id-ember"]`,
		`input[placeholder*="job title"]`,
		`input[aria-label*="Search by title"]`,
		`input[id*="jobs-search-box-keyword"]`,
		`.jobs-search-box__text-input[placeholder*="title"]`,
		`input[name="keywords"]`,
	}
	locationInputSelectors = []string{
		`input[data-test-id="jobs-search-box-location-id-ember"]`,
		`input[placeholder*="location"]`,
		`input[aria-label*="City"]`,
		`input[id*="jobs-search-box-location"]`,
		`.jobs-search-box__text-input[placeholder*="location"]`,
		`input[name="location"]`,
	}
	submitSelectors = []string{
		`button[data-test-id="jobs-search-box-submit-button"]`,
		`button[aria-label*="Search"]`,
		`.jobs-search-box__submit-button`,
		`button[type="submit"]`,
	}
)

//the landing page is ready once any of these is attached
var searchFormSelector = strings.Join(titleInputSelectors[:3], ", ")

var resultsContainerSelector = strings.Join([]string{
	`.jobs-search__results-list`,
	`.scaffold-layout__list-container`,
	`.jobs-search-results-list`,
}, ", ")

var nextButtonSelectors = []string{
	`button[aria-label="Next"]`,
	`button[aria-label*="next"]`,
	`.artdeco-pagination__button--next`,
	`a[aria-label="Next"]`,
	`a[aria-label*="next"]`,
	`button[data-test-pagination-page-btn="next"]`,
	`.jobs-search-pagination__button--next`,
	`li.artdeco-pagination__indicator--number + li button`,
}

// experienceSynonyms widens an experience filter to the labels the site
// actually shows.
var experienceSynonyms = map[string][]string{
	"entry":     {"entry", "internship", "associate"},
	"mid":       {"mid", "experienced"},
	"senior":    {"senior", "lead"},
	"executive": {"executive", "director", "vp"},
}

// "10 results" must not count as an empty result set
var noResultsRe = regexp.MustCompile(`(?i)no matching jobs found|\b0 results\b`)

// filterSelectors are the strategies tried for one filter term.
func filterSelectors(term string) []string {
	term = strings.ReplaceAll(term, `"`, `\"`)
	return []string{
		fmt.Sprintf(`input[value*="%s"]`, strings.ToLower(term)),
		fmt.Sprintf(`label:has-text("%s")`, term),
		fmt.Sprintf(`button:has-text("%s")`, term),
	}
}

func experienceTerms(level string) []string {
	level = strings.ToLower(strings.TrimSpace(level))
	if terms, ok := experienceSynonyms[level]; ok {
		return terms
	}
	//"Entry Level", "Mid-Senior level"
	if f := strings.FieldsFunc(level, func(r rune) bool { return r == ' ' || r == '-' }); len(f) > 0 {
		if terms, ok := experienceSynonyms[f[0]]; ok {
			return terms
		}
	}
	return []string{level}
}
