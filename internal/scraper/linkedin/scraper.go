package linkedin

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-jobscout/internal/browser"
	"go-jobscout/internal/config"
	"go-jobscout/internal/dedup"
	"go-jobscout/internal/extract"
	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"
	"go-jobscout/internal/scraper"

	"github.com/sirupsen/logrus"
)

// Phase is where a search currently is.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNavigatingToSearch
	PhaseEnteringParameters
	PhaseApplyingFilters
	PhaseScrapingPages
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseNavigatingToSearch:
		return "navigating_to_search"
	case PhaseEnteringParameters:
		return "entering_parameters"
	case PhaseApplyingFilters:
		return "applying_filters"
	case PhaseScrapingPages:
		return "scraping_pages"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// staleRetries bounds how often a detached element is looked up again
const staleRetries = 3

// Options tunes the driver. Zero values fall back to defaults.
type Options struct {
	SearchURL      string
	ElementTimeout time.Duration
	ResultsTimeout time.Duration
	MaxEmptyPages  int

	//pauses that let the page react
	InputPause     time.Duration
	SubmitPause    time.Duration
	FilterPause    time.Duration
	FilterSettle   time.Duration
	PageSettle     time.Duration
	NextPageSettle time.Duration
	ScrollPause    time.Duration

	EnrichDetails  bool
	MaxDetailPages int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SearchURL:      cfg.Scraper.SearchURL,
		ElementTimeout: cfg.Browser.ElementTimeout,
		ResultsTimeout: cfg.Browser.ResultsTimeout,
		EnrichDetails:  cfg.Scraper.EnrichDetails,
		MaxDetailPages: cfg.Scraper.MaxDetailPages,
	}
}

func (o Options) withDefaults() Options {
	d := config.Default()
	if o.SearchURL == "" {
		o.SearchURL = d.Scraper.SearchURL
	}
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = d.Browser.ElementTimeout
	}
	if o.ResultsTimeout <= 0 {
		o.ResultsTimeout = d.Browser.ResultsTimeout
	}
	if o.MaxEmptyPages <= 0 {
		o.MaxEmptyPages = 2
	}
	setDefault(&o.InputPause, time.Second)
	setDefault(&o.SubmitPause, 3*time.Second)
	setDefault(&o.FilterPause, 2*time.Second)
	setDefault(&o.FilterSettle, 3*time.Second)
	setDefault(&o.PageSettle, 2*time.Second)
	setDefault(&o.NextPageSettle, 4*time.Second)
	setDefault(&o.ScrollPause, time.Second)
	return o
}

func setDefault(d *time.Duration, v time.Duration) {
	if *d <= 0 {
		*d = v
	}
}

// Scraper drives the LinkedIn job search through one browser session.
// A Scraper runs one search at a time.
type Scraper struct {
	session   *browser.Session
	extractor *extract.Extractor
	opts      Options
	log       *logrus.Entry

	mu       sync.Mutex
	phase    Phase
	progress scraper.PageProgressFunc
	results  []models.JobRecord
}

var (
	_ scraper.Searcher         = (*Scraper)(nil)
	_ scraper.ProgressReporter = (*Scraper)(nil)
)

func New(session *browser.Session, extractor *extract.Extractor, opts Options, log *logrus.Entry) *Scraper {
	return &Scraper{
		session:   session,
		extractor: extractor,
		opts:      opts.withDefaults(),
		log:       logging.OrDiscard(log),
	}
}

// NewFromConfig wires a session and extractor from cfg around launcher.
func NewFromConfig(cfg *config.Config, launcher browser.Launcher, logger *logrus.Logger) *Scraper {
	session := browser.NewSession(launcher, browser.OptionsFromConfig(cfg),
		browser.WithLogger(logging.Component(logger, "browser")))
	extractor := extract.New(cfg.Scraper.BaseURL, logging.Component(logger, "extract"))
	return New(session, extractor, OptionsFromConfig(cfg), logging.Component(logger, "linkedin"))
}

func (s *Scraper) Name() string {
	return "LinkedIn"
}

func (s *Scraper) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Scraper) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.log.Debugf("Search phase: %s", p)
}

func (s *Scraper) SetPageProgress(fn scraper.PageProgressFunc) {
	s.mu.Lock()
	s.progress = fn
	s.mu.Unlock()
}

func (s *Scraper) reportPage(page, total int) {
	s.mu.Lock()
	fn := s.progress
	s.mu.Unlock()
	if fn != nil {
		fn(page, total)
	}
}

// Results returns a copy of what the current or last search accumulated.
func (s *Scraper) Results() []models.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JobRecord, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Scraper) setResults(jobs []models.JobRecord) {
	s.mu.Lock()
	s.results = append(s.results[:0:0], jobs...)
	s.mu.Unlock()
}

// Close releases the browser session.
func (s *Scraper) Close() {
	s.session.Teardown()
}

// Search runs the whole search flow. It returns whatever was collected when
// a step fails, and always releases the browser before returning.
func (s *Scraper) Search(ctx context.Context, req models.SearchRequest) (jobs []models.JobRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("❌ Unexpected error during job search: %v", r)
			jobs = s.Results()
		}
		s.log.Info("🧹 Cleaning up scraper resources...")
		s.Close()
		s.setPhase(PhaseDone)
	}()

	req = req.Normalize()
	s.setResults(nil)
	s.log.Infof("🔍 Starting LinkedIn job search: %s", req.Describe())

	s.setPhase(PhaseNavigatingToSearch)
	if !s.navigateToSearch(ctx) {
		s.log.Error("❌ Failed to navigate to LinkedIn jobs page")
		return []models.JobRecord{}
	}

	s.setPhase(PhaseEnteringParameters)
	if !s.enterParameters(ctx, req) {
		s.log.Error("❌ Failed to input search parameters")
		return []models.JobRecord{}
	}

	s.setPhase(PhaseApplyingFilters)
	s.applyFilters(ctx, req)

	s.setPhase(PhaseScrapingPages)
	jobs = s.scrapePages(ctx, req.MaxPages)

	if s.opts.EnrichDetails && len(jobs) > 0 {
		s.enrich(ctx, jobs)
		s.setResults(jobs)
	}

	s.log.Infof("✅ Job search completed. Found %d total jobs.", len(jobs))
	return jobs
}

func (s *Scraper) navigateToSearch(ctx context.Context) bool {
	s.log.Info("🌐 Navigating to LinkedIn jobs page...")
	if !s.session.NavigateWithRetry(ctx, s.opts.SearchURL, -1) {
		return false
	}
	if s.session.IsBlockedOrCaptcha(ctx, "") {
		s.log.Warn("🛡️ LinkedIn access blocked or CAPTCHA detected")
		return false
	}
	if s.session.WaitForElementWithRetry(ctx, searchFormSelector, s.opts.ResultsTimeout, staleRetries) == nil {
		s.log.Warn("⚠️ Could not find job search form on LinkedIn")
		return false
	}
	return true
}

// locate returns the first element matching candidates in order. It checks
// what is already on the page before waiting for any of them to appear.
func (s *Scraper) locate(ctx context.Context, candidates []string) browser.Element {
	for _, selector := range candidates {
		if els := s.session.FindElements(ctx, selector); len(els) > 0 {
			return els[0]
		}
	}
	return s.session.WaitForElementWithRetry(ctx, strings.Join(candidates, ", "), s.opts.ElementTimeout, staleRetries)
}

func (s *Scraper) fill(ctx context.Context, el browser.Element, value string) bool {
	if err := el.Clear(); err != nil {
		s.log.Warnf("⚠️ Error clearing input: %v", err)
		return false
	}
	if err := el.Fill(value); err != nil {
		s.log.Warnf("⚠️ Error typing %q: %v", value, err)
		return false
	}
	s.session.Sleep(ctx, s.opts.InputPause)
	return true
}

func (s *Scraper) enterParameters(ctx context.Context, req models.SearchRequest) bool {
	var titleInput browser.Element
	if req.Title != "" {
		s.log.Infof("⌨️ Entering job title: %s", req.Title)
		if titleInput = s.locate(ctx, titleInputSelectors); titleInput == nil {
			s.log.Warn("⚠️ Could not find job title input field")
			return false
		}
		if !s.fill(ctx, titleInput, req.Title) {
			return false
		}
	}

	if req.Location != "" {
		s.log.Infof("📍 Entering location: %s", req.Location)
		locationInput := s.locate(ctx, locationInputSelectors)
		if locationInput == nil {
			s.log.Warn("⚠️ Could not find location input field")
			return false
		}
		if !s.fill(ctx, locationInput, req.Location) {
			return false
		}
	}

	s.log.Info("🚀 Submitting job search...")
	if !s.submit(ctx, titleInput) {
		return false
	}
	s.session.Sleep(ctx, s.opts.SubmitPause)

	if s.session.WaitForElement(ctx, resultsContainerSelector, s.opts.ResultsTimeout) == nil {
		s.log.Warn("⚠️ Search results did not load properly")
		return false
	}
	s.log.Info("✅ Search parameters entered successfully")
	return true
}

// submit clicks the search button, or presses Enter in the title field
// when there is no usable button.
func (s *Scraper) submit(ctx context.Context, titleInput browser.Element) bool {
	if button := s.locate(ctx, submitSelectors); button != nil {
		err := button.Click(s.opts.ElementTimeout)
		if err == nil {
			return true
		}
		s.log.Debugf("Search button click failed (%v), trying script click", err)
		if err := button.ClickJS(); err == nil {
			return true
		}
	}
	if titleInput == nil {
		s.log.Warn("⚠️ Could not find search button or submit search")
		return false
	}
	if err := titleInput.Press("Enter"); err != nil {
		s.log.Warnf("⚠️ Error submitting search: %v", err)
		return false
	}
	return true
}

// applyFilters is best effort: a filter that cannot be applied is logged
// and the search continues unfiltered.
func (s *Scraper) applyFilters(ctx context.Context, req models.SearchRequest) {
	if req.Category == models.FilterAll && req.Experience == models.FilterAll {
		s.log.Info("🎛️ No filters to apply")
		return
	}
	s.log.Infof("🎛️ Applying filters - Job Type: %s, Experience: %s", req.Category, req.Experience)
	s.session.Sleep(ctx, s.opts.FilterPause)

	if req.Category != models.FilterAll {
		if !s.clickFilter(ctx, []string{req.Category}) {
			s.log.Warnf("⚠️ Failed to apply job type filter: %s", req.Category)
		}
	}
	if req.Experience != models.FilterAll {
		if !s.clickFilter(ctx, experienceTerms(req.Experience)) {
			s.log.Warnf("⚠️ Failed to apply experience filter: %s", req.Experience)
		}
	}

	s.session.Sleep(ctx, s.opts.FilterSettle)
}

func (s *Scraper) clickFilter(ctx context.Context, terms []string) bool {
	for _, term := range terms {
		for _, selector := range filterSelectors(term) {
			for _, el := range s.session.FindElements(ctx, selector) {
				if !usable(el) {
					continue
				}
				if err := el.Click(s.opts.ElementTimeout); err != nil {
					s.log.Debugf("Filter click failed on %s: %v", selector, err)
					continue
				}
				s.session.Sleep(ctx, s.opts.InputPause)
				return true
			}
		}
	}
	return false
}

func usable(el browser.Element) bool {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	enabled, err := el.Enabled()
	return err == nil && enabled
}

// scrapePages walks result pages until maxPages, a block, the end of the
// results, or too many empty pages in a row.
func (s *Scraper) scrapePages(ctx context.Context, maxPages int) []models.JobRecord {
	jobs := []models.JobRecord{}
	seen := dedup.NewSeen()
	emptyPages := 0

	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			s.log.Warn("🛑 Search cancelled, returning collected jobs")
			break
		}
		s.log.Infof("📄 Scraping page %d of %d...", page, maxPages)
		s.reportPage(page, maxPages)

		s.session.Sleep(ctx, s.opts.PageSettle)
		s.session.ScrollPage(ctx)

		document := s.session.PageSourceSafe(ctx)
		if document == "" {
			s.log.Warnf("⚠️ Could not get page source for page %d", page)
		} else if s.session.IsBlockedOrCaptcha(ctx, document) {
			s.log.Warn("🛡️ Blocking detected, stopping scraping")
			break
		}

		var pageJobs []models.JobRecord
		if document != "" {
			pageJobs = s.extractor.ParseListings(document)
		}

		if len(pageJobs) == 0 {
			emptyPages++
			s.log.Infof("📭 No jobs found on page %d", page)
			if noResultsRe.MatchString(document) {
				s.log.Info("🏁 Reached end of search results")
				break
			}
		} else {
			emptyPages = 0
			fresh := seen.Filter(pageJobs)
			jobs = append(jobs, fresh...)
			s.setResults(jobs)
			s.log.Infof("📦 Found %d jobs on page %d, %d new", len(pageJobs), page, len(fresh))
		}

		if page == maxPages || emptyPages >= s.opts.MaxEmptyPages {
			break
		}
		s.session.ApplyRequestDelay(ctx)
		if !s.nextPage(ctx) {
			s.log.Info("⏹️ Could not navigate to next page, stopping")
			break
		}
	}

	s.log.Infof("📊 Scraping completed. Total unique jobs found: %d", len(jobs))
	return jobs
}

func (s *Scraper) findNextButton(ctx context.Context) browser.Element {
	for _, selector := range nextButtonSelectors {
		for _, el := range s.session.FindElements(ctx, selector) {
			if !usable(el) {
				continue
			}
			class, _ := el.Attribute("class")
			ariaDisabled, _ := el.Attribute("aria-disabled")
			if strings.Contains(strings.ToLower(class), "disabled") || ariaDisabled == "true" {
				continue
			}
			return el
		}
	}
	return nil
}

// nextPage clicks the next control and reports whether the address changed.
func (s *Scraper) nextPage(ctx context.Context) bool {
	before := s.session.CurrentURL(ctx)

	button := s.findNextButton(ctx)
	if button == nil {
		s.log.Info("⏹️ Next page button not found or disabled")
		return false
	}

	if err := button.ScrollIntoView(); err != nil {
		s.log.Debugf("Scroll to next button failed: %v", err)
	}
	s.session.Sleep(ctx, s.opts.ScrollPause)

	if err := button.Click(s.opts.ElementTimeout); err != nil {
		s.log.Debugf("Next button click intercepted (%v), trying script click", err)
		if err := button.ClickJS(); err != nil {
			s.log.Warnf("⚠️ Error navigating to next page: %v", err)
			return false
		}
	}
	s.session.Sleep(ctx, s.opts.NextPageSettle)

	after := s.session.CurrentURL(ctx)
	if after == before {
		s.log.Warn("⚠️ URL did not change, pagination may have failed")
		return false
	}
	s.log.Infof("➡️ Navigated to next page: %s", after)
	return true
}

// enrich opens each record's own page and fills what the listing lacked.
// It stops at the first block page.
func (s *Scraper) enrich(ctx context.Context, jobs []models.JobRecord) {
	limit := len(jobs)
	if s.opts.MaxDetailPages > 0 && s.opts.MaxDetailPages < limit {
		limit = s.opts.MaxDetailPages
	}
	s.log.Infof("🔎 Enriching %d jobs from their detail pages", limit)

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			return
		}
		rec := &jobs[i]
		if rec.URL == "" {
			continue
		}
		if !s.session.NavigateWithRetry(ctx, rec.URL, 0) {
			continue
		}
		document := s.session.PageSourceSafe(ctx)
		if s.session.IsBlockedOrCaptcha(ctx, document) {
			s.log.Warn("🛡️ Blocking detected while enriching, stopping")
			return
		}
		details := s.extractor.ExtractDetails(document)
		if details.Empty() {
			continue
		}
		mergeDetails(rec, details)
	}
}

func mergeDetails(rec *models.JobRecord, d models.DetailRecord) {
	if len(d.FullDescription) > len(rec.Description) {
		rec.Description = d.FullDescription
	}
	if rec.JobCategory == "" {
		rec.JobCategory = d.JobCategory
	}
	if rec.ExperienceLevel == "" {
		rec.ExperienceLevel = d.ExperienceLevel
	}
}
