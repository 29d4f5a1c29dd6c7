// Package extract turns rendered job-search markup into job records.
//
// Every lookup is a cascade of selectors tried in order; the first one that
// yields usable text wins. Nothing in this package touches the network.
package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://www.linkedin.com"

	// heuristic scan results are capped to bound noise
	maxHeuristicCards = 20
)

var (
	relativeTimeRe = regexp.MustCompile(`(?i)ago|day|week|month`)
	trailingIDRe   = regexp.MustCompile(`(\d+)$`)
)

// Extractor parses listing and detail pages for one site.
type Extractor struct {
	BaseURL *url.URL
	Now     func() time.Time
	Log     *logrus.Entry
}

// New returns an Extractor resolving links against baseURL. An empty or
// unparsable baseURL falls back to DefaultBaseURL.
func New(baseURL string, log *logrus.Entry) *Extractor {
	u, err := url.Parse(baseURL)
	if baseURL == "" || err != nil || u.Host == "" {
		u, _ = url.Parse(DefaultBaseURL)
	}
	return &Extractor{BaseURL: u, Now: time.Now, Log: logging.OrDiscard(log)}
}

// ParseListings extracts every valid record in document. Records repeating an
// identifier already seen in the same document are dropped.
func (e *Extractor) ParseListings(document string) []models.JobRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		e.Log.Warnf("⚠️ Error parsing job listings: %v", err)
		return nil
	}

	var jobs []models.JobRecord
	seen := make(map[string]struct{})
	for _, card := range e.FindListingNodes(doc) {
		rec, ok := e.ExtractRecord(card)
		if !ok {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		jobs = append(jobs, rec)
	}
	return jobs
}

// FindListingNodes returns the matches of the first card selector that finds
// anything, else the heuristic scan capped at 20 nodes.
func (e *Extractor) FindListingNodes(doc *goquery.Document) []*goquery.Selection {
	for _, selector := range cardSelectors {
		found := doc.Find(selector)
		if found.Length() == 0 {
			continue
		}
		e.Log.Debugf("Found %d job cards using selector: %s", found.Length(), selector)
		return nodes(found)
	}

	e.Log.Debug("No job cards found with specific selectors, trying broader search...")
	var cards []*goquery.Selection
	doc.Find("div, li, article").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !looksLikeCard(s) {
			return true
		}
		cards = append(cards, s)
		return len(cards) < maxHeuristicCards
	})
	if len(cards) > 0 {
		e.Log.Debugf("Found %d potential job cards using broader search", len(cards))
	}
	return cards
}

// looksLikeCard: a job/card/result container holding a link plus either a
// heading or relative-time text.
func looksLikeCard(s *goquery.Selection) bool {
	class := strings.ToLower(s.AttrOr("class", ""))
	if !containsAny(class, []string{"job", "card", "result"}) {
		return false
	}
	if s.Find("a[href]").Length() == 0 {
		return false
	}
	return s.Find("h3, h4, h5").Length() > 0 || relativeTimeRe.MatchString(textOf(s))
}

func nodes(sel *goquery.Selection) []*goquery.Selection {
	out := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

// ExtractRecord reads one card. ok is false when title or organization is missing.
func (e *Extractor) ExtractRecord(card *goquery.Selection) (rec models.JobRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.Log.Warnf("⚠️ Error extracting job data from card: %v", r)
			rec, ok = models.JobRecord{}, false
		}
	}()

	now := e.now()
	rec = models.JobRecord{
		Title:        e.title(card),
		Organization: e.organization(card),
		Location:     e.location(card),
		PostedDate:   e.postedDate(card, now),
		Description:  e.description(card),
		URL:          e.jobURL(card),
		Status:       models.StatusNotReviewed,
		DiscoveredAt: now,
	}
	if rec.Title == "" || rec.Organization == "" {
		e.Log.WithFields(logrus.Fields{
			"title":        rec.Title,
			"organization": rec.Organization,
			"url":          rec.URL,
		}).Debug("Insufficient job data extracted")
		return models.JobRecord{}, false
	}

	rec.ID = e.jobID(card)
	if rec.ID == "" {
		rec.ID = FallbackID(rec.Title, rec.Organization, rec.Location)
	}
	return rec, true
}

func (e *Extractor) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// firstMatch walks rules and returns the first non-empty cleaned value.
func firstMatch(card *goquery.Selection, rules []rule) string {
	for _, r := range rules {
		el := card.Find(r.Selector).First()
		if el.Length() == 0 {
			continue
		}
		if v := valueOf(el, r.Attrs); v != "" {
			return v
		}
	}
	return ""
}

func valueOf(el *goquery.Selection, attrs []string) string {
	for _, a := range attrs {
		if v := CleanText(el.AttrOr(a, "")); v != "" {
			return v
		}
	}
	return textOf(el)
}

func (e *Extractor) title(card *goquery.Selection) string {
	if t := cleanTitle(firstMatch(card, titleRules)); t != "" {
		return t
	}
	var title string
	card.Find(`a[href*="/jobs/view/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if t := textOf(a); len(t) > 5 {
			title = t
			return false
		}
		return true
	})
	return title
}

func cleanTitle(t string) string {
	t = strings.TrimPrefix(t, "View job details for ")
	t = strings.TrimSuffix(t, " job")
	return CleanText(t)
}

func (e *Extractor) organization(card *goquery.Selection) string {
	if org := firstMatch(card, organizationRules); org != "" {
		return org
	}
	var org string
	card.Find(`a[href*="/company/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if t := textOf(a); len(t) > 1 {
			org = t
			return false
		}
		return true
	})
	if org != "" {
		return org
	}
	card.Find("h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if t := textOf(h); len(t) > 1 && len(t) < 100 {
			org = t
			return false
		}
		return true
	})
	return org
}

func (e *Extractor) location(card *goquery.Selection) string {
	for _, selector := range locationSelectors {
		el := card.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		loc := textOf(el)
		if loc != "" && !containsAny(strings.ToLower(loc), locationNoise) {
			return loc
		}
	}

	//metadata blocks that read like a place
	var loc string
	card.Find("span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.AttrOr("class", ""), "metadata") {
			return true
		}
		text := textOf(s)
		if text == "" || !containsAny(text, []string{", ", " - ", "Remote", "Hybrid"}) {
			return true
		}
		if containsAny(strings.ToLower(text), locationNoise) {
			return true
		}
		loc = text
		return false
	})
	return loc
}

func (e *Extractor) postedDate(card *goquery.Selection, now time.Time) string {
	if raw := firstMatch(card, dateRules); raw != "" {
		return NormalizePostedDate(raw, now)
	}
	if raw := scanPostedDate(textOf(card)); raw != "" {
		return NormalizePostedDate(raw, now)
	}
	return ""
}

func (e *Extractor) description(card *goquery.Selection) string {
	for _, selector := range descriptionSelectors {
		if d := textOf(card.Find(selector).First()); len(d) > 10 {
			return d
		}
	}
	var desc string
	card.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := textOf(p)
		if len(t) <= 20 || len(t) >= 500 || containsAny(strings.ToLower(t), descriptionNoise) {
			return true
		}
		desc = t
		return false
	})
	return desc
}

func (e *Extractor) jobURL(card *goquery.Selection) string {
	for _, selector := range linkSelectors {
		href, ok := card.Find(selector).First().Attr("href")
		if !ok {
			continue
		}
		if u := e.ResolveURL(href); u != "" {
			return canonicalURL(u)
		}
	}
	return ""
}

// jobID reads the site identifier from the card attributes, then from the
// detail link path. Empty when neither exists.
func (e *Extractor) jobID(card *goquery.Selection) string {
	for _, attr := range idAttrs {
		v := strings.TrimSpace(card.AttrOr(attr, ""))
		if v == "" {
			continue
		}
		if attr != "data-entity-urn" {
			return v
		}
		//urn:li:jobPosting:3812345678 or urn:li:job:123
		if !strings.Contains(strings.ToLower(v), "job") {
			continue
		}
		if id := v[strings.LastIndex(v, ":")+1:]; id != "" {
			return id
		}
	}

	var id string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		id = idFromJobPath(a.AttrOr("href", ""))
		return id == ""
	})
	return id
}

// idFromJobPath returns the segment after /jobs/view/. Slug-style segments
// ("go-engineer-at-acme-3812345678") reduce to their trailing number.
func idFromJobPath(href string) string {
	i := strings.Index(href, "jobs/view/")
	if i < 0 {
		return ""
	}
	seg := href[i+len("jobs/view/"):]
	if j := strings.IndexAny(seg, "?#"); j >= 0 {
		seg = seg[:j]
	}
	seg = strings.Trim(seg, "/")
	if j := strings.Index(seg, "/"); j >= 0 {
		seg = seg[:j]
	}
	if m := trailingIDRe.FindString(seg); m != "" && strings.Contains(seg, "-") {
		return m
	}
	return seg
}

// canonicalURL drops tracking query parameters so the same posting always
// maps to one address.
func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
