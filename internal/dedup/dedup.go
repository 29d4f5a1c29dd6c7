package dedup

import (
	"sync"

	"go-jobscout/internal/models"
)

// Seen is the run-scoped set of identifiers and URLs already emitted.
// It never consults records from earlier runs.
type Seen struct {
	mu   sync.Mutex
	ids  map[string]struct{}
	urls map[string]struct{}
}

func NewSeen() *Seen {
	return &Seen{
		ids:  make(map[string]struct{}),
		urls: make(map[string]struct{}),
	}
}

// Add records rec and reports whether it is new. A record is a duplicate
// when either its ID or its non-empty URL was added before.
func (s *Seen) Add(rec models.JobRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[rec.ID]; ok {
		return false
	}
	if rec.URL != "" {
		if _, ok := s.urls[rec.URL]; ok {
			return false
		}
		s.urls[rec.URL] = struct{}{}
	}
	s.ids[rec.ID] = struct{}{}
	return true
}

// Filter keeps the records of batch not seen yet, in order, and marks them seen.
func (s *Seen) Filter(batch []models.JobRecord) []models.JobRecord {
	fresh := make([]models.JobRecord, 0, len(batch))
	for _, rec := range batch {
		if s.Add(rec) {
			fresh = append(fresh, rec)
		}
	}
	return fresh
}

// Len is the number of distinct records added.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *Seen) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
	s.urls = make(map[string]struct{})
}
