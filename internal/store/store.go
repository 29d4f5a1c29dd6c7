// Package store keeps discovered jobs in memory and tracks their review status.
package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go-jobscout/internal/filter"
	"go-jobscout/internal/models"

	"github.com/google/uuid"
)

const exportTimeLayout = "2006-01-02 15:04:05"

var (
	ErrNotFound      = errors.New("job not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidJob    = errors.New("invalid job record")
)

// Store is a mutex-guarded map of records that remembers insertion order.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]models.JobRecord
	order []string
	now   func() time.Time
}

func New() *Store {
	return &Store{
		jobs: make(map[string]models.JobRecord),
		now:  time.Now,
	}
}

// ---------------- WRITE OPERATIONS ----------------

// Add inserts or replaces records by ID. Records without an ID are skipped;
// missing status and discovery time get defaults.
func (s *Store) Add(records ...models.JobRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(records)
}

func (s *Store) addLocked(records []models.JobRecord) int {
	added := 0
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		s.put(s.withDefaults(rec))
		added++
	}
	return added
}

// AddRaw accepts a loosely shaped record, as decoded from JSON, and returns
// the stored ID. A missing ID is generated.
func (s *Store) AddRaw(raw map[string]any) (string, error) {
	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		normalized[k] = v
	}
	//accept the field names older exports used
	for old, current := range map[string]string{"company": "organization", "job_type": "job_category", "scraped_at": "discovered_at"} {
		if v, ok := normalized[old]; ok {
			if _, exists := normalized[current]; !exists {
				normalized[current] = v
			}
			delete(normalized, old)
		}
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	var rec models.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if rec.Status != "" && !rec.Status.Valid() {
		st, err := models.ParseStatus(string(rec.Status))
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rec.Status)
		}
		rec.Status = st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = "job_" + uuid.NewString()
	}
	s.put(s.withDefaults(rec))
	return rec.ID, nil
}

func (s *Store) withDefaults(rec models.JobRecord) models.JobRecord {
	if rec.Status == "" {
		rec.Status = models.StatusNotReviewed
	}
	if rec.DiscoveredAt.IsZero() {
		rec.DiscoveredAt = s.now()
	}
	return rec
}

// put must be called with the write lock held.
func (s *Store) put(rec models.JobRecord) {
	if _, exists := s.jobs[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.jobs[rec.ID] = rec
}

// UpdateStatus sets a new status and stamps the change time.
func (s *Store) UpdateStatus(id string, status models.Status) (models.JobRecord, error) {
	if !status.Valid() {
		return models.JobRecord{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return models.JobRecord{}, ErrNotFound
	}
	changed := s.now()
	rec.Status = status
	rec.StatusChangedAt = &changed
	s.jobs[id] = rec
	return rec, nil
}

// Remove deletes one record and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]models.JobRecord)
	s.order = nil
}

// Replace swaps the whole contents for records, for a fresh search result.
// Readers see either the old set or the new one, never an empty store between.
func (s *Store) Replace(records []models.JobRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]models.JobRecord, len(records))
	s.order = nil
	return s.addLocked(records)
}

// ---------------- READ OPERATIONS ----------------

func (s *Store) Get(id string) (models.JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	return rec, ok
}

// All returns every record in insertion order.
func (s *Store) All() []models.JobRecord {
	return s.collect(func(models.JobRecord) bool { return true })
}

func (s *Store) Filter(c filter.Criteria) []models.JobRecord {
	return s.collect(c.Match)
}

// Search matches term against title, organization and description. An
// empty term returns everything.
func (s *Store) Search(term string) []models.JobRecord {
	return s.collect(func(rec models.JobRecord) bool { return filter.MatchText(rec, term) })
}

func (s *Store) ByStatus(status models.Status) []models.JobRecord {
	return s.collect(func(rec models.JobRecord) bool { return rec.Status == status })
}

// StatusCounts has an entry for every status, zero included.
func (s *Store) StatusCounts() map[models.Status]int {
	counts := make(map[models.Status]int, len(models.AllStatuses()))
	for _, st := range models.AllStatuses() {
		counts[st] = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.jobs {
		if _, ok := counts[rec.Status]; ok {
			counts[rec.Status]++
		}
	}
	return counts
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) collect(keep func(models.JobRecord) bool) []models.JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.JobRecord, 0, len(s.order))
	for _, id := range s.order {
		if rec := s.jobs[id]; keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// ---------------- EXPORT ----------------

// ExportRow is a record flattened to strings, timestamps as YYYY-MM-DD HH:MM:SS.
type ExportRow struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Organization    string `json:"organization"`
	Location        string `json:"location"`
	PostedDate      string `json:"posted_date"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	JobCategory     string `json:"job_category"`
	ExperienceLevel string `json:"experience_level"`
	Status          string `json:"status"`
	DiscoveredAt    string `json:"discovered_at"`
	StatusChangedAt string `json:"status_changed_at"`
}

var exportHeader = []string{
	"id", "title", "organization", "location", "posted_date", "description", "url",
	"job_category", "experience_level", "status", "discovered_at", "status_changed_at",
}

func (r ExportRow) values() []string {
	return []string{
		r.ID, r.Title, r.Organization, r.Location, r.PostedDate, r.Description, r.URL,
		r.JobCategory, r.ExperienceLevel, r.Status, r.DiscoveredAt, r.StatusChangedAt,
	}
}

func NewExportRow(rec models.JobRecord) ExportRow {
	row := ExportRow{
		ID:              rec.ID,
		Title:           rec.Title,
		Organization:    rec.Organization,
		Location:        rec.Location,
		PostedDate:      rec.PostedDate,
		Description:     rec.Description,
		URL:             rec.URL,
		JobCategory:     rec.JobCategory,
		ExperienceLevel: rec.ExperienceLevel,
		Status:          string(rec.Status),
	}
	if !rec.DiscoveredAt.IsZero() {
		row.DiscoveredAt = rec.DiscoveredAt.Format(exportTimeLayout)
	}
	if rec.StatusChangedAt != nil {
		row.StatusChangedAt = rec.StatusChangedAt.Format(exportTimeLayout)
	}
	return row
}

// ExportRows returns every record ready for tabular export.
func (s *Store) ExportRows() []ExportRow {
	all := s.All()
	rows := make([]ExportRow, 0, len(all))
	for _, rec := range all {
		rows = append(rows, NewExportRow(rec))
	}
	return rows
}

// WriteCSV writes a header plus one line per record.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV exports the whole store.
func (s *Store) WriteCSV(w io.Writer) error {
	return WriteCSV(w, s.ExportRows())
}
