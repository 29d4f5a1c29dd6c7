package filter

import (
	"strings"
	"time"

	"go-jobscout/internal/models"
)

// Criteria narrows a record list. Zero fields, and the "All" filter value,
// match everything.
type Criteria struct {
	Status       models.Status `form:"status" json:"status,omitempty"`
	Category     string        `form:"category" json:"category,omitempty"`
	Experience   string        `form:"experience" json:"experience,omitempty"`
	Organization string        `form:"organization" json:"organization,omitempty"`
	Location     string        `form:"location" json:"location,omitempty"`
	// Exclude drops records whose title mentions any of these words.
	Exclude []string `form:"exclude" json:"exclude,omitempty"`
	// MaxAgeDays drops records posted longer ago than this. 0 disables.
	MaxAgeDays int `form:"max_age_days" json:"max_age_days,omitempty"`
}

// Match reports whether rec satisfies every set criterion.
func (c Criteria) Match(rec models.JobRecord) bool {
	return c.MatchAt(rec, time.Now())
}

func (c Criteria) MatchAt(rec models.JobRecord, now time.Time) bool {
	if isSet(string(c.Status)) && rec.Status != c.Status {
		return false
	}
	if isSet(c.Category) && !strings.EqualFold(rec.JobCategory, c.Category) {
		return false
	}
	if isSet(c.Experience) && !strings.EqualFold(rec.ExperienceLevel, c.Experience) {
		return false
	}
	if c.Organization != "" && !containsFolded(rec.Organization, c.Organization) {
		return false
	}
	if c.Location != "" && !containsFolded(rec.Location, c.Location) {
		return false
	}
	for _, word := range c.Exclude {
		if word != "" && containsFolded(rec.Title, word) {
			return false
		}
	}
	if c.MaxAgeDays > 0 && !PostedWithin(rec.PostedDate, now, time.Duration(c.MaxAgeDays)*24*time.Hour) {
		return false
	}
	return true
}

// Empty is true when no criterion is set.
func (c Criteria) Empty() bool {
	return !isSet(string(c.Status)) && !isSet(c.Category) && !isSet(c.Experience) &&
		c.Organization == "" && c.Location == "" && len(c.Exclude) == 0 && c.MaxAgeDays == 0
}

func isSet(v string) bool {
	return v != "" && v != models.FilterAll
}

// MatchText reports whether term occurs in the title, organization or
// description. An empty term matches every record.
func MatchText(rec models.JobRecord, term string) bool {
	if strings.TrimSpace(term) == "" {
		return true
	}
	return containsFolded(rec.Title, term) ||
		containsFolded(rec.Organization, term) ||
		containsFolded(rec.Description, term)
}

// Apply returns the records matching c, preserving order.
func Apply(records []models.JobRecord, c Criteria) []models.JobRecord {
	out := make([]models.JobRecord, 0, len(records))
	for _, rec := range records {
		if c.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}
