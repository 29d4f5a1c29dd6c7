package extract

// rule is one step of a field cascade. Attrs are read in order before the
// element text; the first non-empty value wins.
type rule struct {
	Selector string
	Attrs    []string
}

var labelAttrs = []string{"title", "aria-label"}

// cardSelectors locate listing containers, most specific first.
var cardSelectors = []string{
	`div[data-entity-urn*="job"]`,
	`.job-search-card`,
	`.jobs-search__results-list li`,
	`.scaffold-layout__list-container li`,
	`.jobs-search-results-list__list-item`,
	`.job-result-card`,
	`li[data-occludable-job-id]`,
	`.base-search-card`,
	`article.job-search-card`,
}

var titleRules = []rule{
	{`h3 a span[title]`, labelAttrs},
	{`h3 a span`, labelAttrs},
	{`.job-search-card__title a`, labelAttrs},
	{`.base-search-card__title a`, labelAttrs},
	{`h3.base-search-card__title a`, labelAttrs},
	{`h3.base-search-card__title`, labelAttrs},
	{`.job-result-card__title a`, labelAttrs},
	{`a[data-control-name="job_search_job_title"] span`, labelAttrs},
	{`a[data-tracking-control-name*="job_title"]`, labelAttrs},
	{`.job-search-card__title-link`, labelAttrs},
	{`h3 a[href*="/jobs/view/"]`, labelAttrs},
	{`h4 a[href*="/jobs/view/"]`, labelAttrs},
	{`h4 a`, labelAttrs},
	{`.sr-only + span`, labelAttrs},
	{`a[aria-label*="job"]`, labelAttrs},
}

var organizationRules = []rule{
	{`h4 a span[title]`, labelAttrs},
	{`h4 a span`, labelAttrs},
	{`.job-search-card__subtitle a`, labelAttrs},
	{`a[data-control-name="job_search_company_name"] span`, labelAttrs},
	{`.job-search-card__subtitle-link`, labelAttrs},
	{`.base-search-card__subtitle a`, labelAttrs},
	{`.job-result-card__subtitle a`, labelAttrs},
	{`h4.base-search-card__subtitle a`, labelAttrs},
	{`a[data-tracking-control-name*="company"]`, labelAttrs},
	{`.job-search-card__subtitle`, labelAttrs},
	{`h4 a[href*="/company/"]`, labelAttrs},
	{`.artdeco-entity-lockup__subtitle a`, labelAttrs},
	{`.job-search-card__company-name`, labelAttrs},
}

var locationSelectors = []string{
	`.job-search-card__location`,
	`span[data-test="job-search-card-location"]`,
	`.job-result-card__location`,
	`.base-search-card__metadata span`,
	`.job-search-card__metadata span`,
	`.artdeco-entity-lockup__metadata span`,
	`div[data-test-id*="location"]`,
	`.job-search-card__location-text`,
}

var dateRules = []rule{
	{`time`, []string{"datetime", "title"}},
	{`.job-search-card__listdate`, []string{"datetime", "title"}},
	{`span[data-test="job-search-card-listdate"]`, []string{"datetime", "title"}},
	{`.base-search-card__metadata time`, []string{"datetime", "title"}},
	{`.job-result-card__listdate`, []string{"datetime", "title"}},
	{`.artdeco-entity-lockup__metadata time`, []string{"datetime", "title"}},
}

var descriptionSelectors = []string{
	`.job-search-card__snippet`,
	`p[data-test="job-search-card-snippet"]`,
	`.job-result-card__snippet`,
	`.base-search-card__snippet`,
	`.job-search-card__description`,
	`.artdeco-entity-lockup__content p`,
	`.job-search-card__summary`,
}

var linkSelectors = []string{
	`a[href*="/jobs/view/"]`,
	`h3 a[href]`,
	`h4 a[href]`,
	`.job-search-card__title a`,
	`.base-search-card__title a`,
	`a.base-card__full-link`,
}

// idAttrs carry a site entity identifier on the card itself.
var idAttrs = []string{"data-entity-urn", "data-occludable-job-id", "data-job-id"}

var detailDescriptionSelectors = []string{
	`.show-more-less-html__markup`,
	`.jobs-description__content`,
	`.jobs-box__html-content`,
	`[data-testid="expandable-text-box"]`,
	`#job-details`,
}

var detailCriteriaSelectors = []string{
	`.jobs-unified-top-card__job-insight span`,
	`.description__job-criteria-text`,
	`.job-details-jobs-unified-top-card__job-insight span`,
}

var companyLinkSelectors = []string{
	`.jobs-unified-top-card__company-name a`,
	`.topcard__org-name-link`,
	`.job-details-jobs-unified-top-card__company-name a`,
}

var (
	categoryVocabulary = []string{"full-time", "part-time", "contract", "internship", "temporary", "volunteer"}
	levelVocabulary    = []string{"entry", "mid", "senior", "executive", "associate", "director"}
)

// words that mark card metadata rather than a location or snippet
var (
	locationNoise    = []string{"ago", "day", "week", "month", "hour", "applicant", "easy apply"}
	descriptionNoise = []string{"ago", "applicant", "easy apply", "promoted"}
)
