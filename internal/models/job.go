package models

import (
	"fmt"
	"strings"
	"time"
)

// Status tracks what the user decided about a discovered job.
type Status string

const (
	StatusNotReviewed   Status = "Not Reviewed"
	StatusInterested    Status = "Interested"
	StatusApplied       Status = "Applied"
	StatusNotInterested Status = "Not Interested"
)

// AllStatuses lists the statuses in display order.
func AllStatuses() []Status {
	return []Status{StatusNotReviewed, StatusInterested, StatusApplied, StatusNotInterested}
}

func (s Status) Valid() bool {
	for _, st := range AllStatuses() {
		if s == st {
			return true
		}
	}
	return false
}

// ParseStatus accepts the display form ("Not Reviewed") or a compact form
// ("not_reviewed", "notreviewed"), case-insensitively.
func ParseStatus(raw string) (Status, error) {
	key := compactStatus(raw)
	for _, st := range AllStatuses() {
		if compactStatus(string(st)) == key {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

func compactStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// JobRecord is one discovered listing
type JobRecord struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Organization    string     `json:"organization"`
	Location        string     `json:"location"`
	PostedDate      string     `json:"posted_date"`
	Description     string     `json:"description"`
	URL             string     `json:"url"`
	JobCategory     string     `json:"job_category"`
	ExperienceLevel string     `json:"experience_level"`
	Status          Status     `json:"status"`
	DiscoveredAt    time.Time  `json:"discovered_at"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
}

// Valid reports whether the record carries the fields every emitted record must have.
func (j JobRecord) Valid() bool {
	return j.ID != "" && j.Title != "" && j.Organization != ""
}

// DetailRecord holds what can only be read from a listing's own detail page.
type DetailRecord struct {
	FullDescription string `json:"full_description"`
	JobCategory     string `json:"job_category"`
	ExperienceLevel string `json:"experience_level"`
	CompanyURL      string `json:"company_url"`
}

func (d DetailRecord) Empty() bool {
	return d == DetailRecord{}
}

// FilterAll is the "no filter" value for category and experience.
const FilterAll = "All"

// DefaultMaxPages is used when a request does not set a page limit.
const DefaultMaxPages = 3

// SearchRequest is the parameter bundle for a single search run. Never persisted.
type SearchRequest struct {
	Title      string `json:"title"`
	Location   string `json:"location"`
	Category   string `json:"category"`
	Experience string `json:"experience"`
	MaxPages   int    `json:"max_pages"`
}

// Normalize trims inputs and fills defaults for empty filters and page limit.
func (r SearchRequest) Normalize() SearchRequest {
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
	r.Category = strings.TrimSpace(r.Category)
	r.Experience = strings.TrimSpace(r.Experience)
	if r.Category == "" {
		r.Category = FilterAll
	}
	if r.Experience == "" {
		r.Experience = FilterAll
	}
	if r.MaxPages <= 0 {
		r.MaxPages = DefaultMaxPages
	}
	return r
}

// Describe renders the request the way progress messages show it.
func (r SearchRequest) Describe() string {
	parts := []string{}
	if r.Title != "" {
		parts = append(parts, fmt.Sprintf("%q", r.Title))
	} else {
		parts = append(parts, "all jobs")
	}
	if r.Location != "" {
		parts = append(parts, "in "+r.Location)
	}
	if r.Category != "" && r.Category != FilterAll {
		parts = append(parts, "("+r.Category+")")
	}
	if r.Experience != "" && r.Experience != FilterAll {
		parts = append(parts, "["+r.Experience+"]")
	}
	return strings.Join(parts, " ")
}
