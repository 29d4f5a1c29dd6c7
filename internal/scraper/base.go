// Define an interface for all job site searchers
// Ensure consistency between drivers, the worker and the commands

package scraper

import (
	"context"

	"go-jobscout/internal/models"
)

//Searcher defines the interface that every site driver must implement
type Searcher interface {
	//Name is the site name (LinkedIn, ...)
	Name() string

	//Search runs one full search and returns the deduplicated records.
	//It never fails: problems yield an empty or partial result.
	Search(ctx context.Context, req models.SearchRequest) []models.JobRecord

	//Close releases the browser. Safe to call at any time.
	Close()
}

//PageProgressFunc is told each time a results page is about to be scraped
type PageProgressFunc func(page, total int)

//ProgressReporter is implemented by searchers that can report page progress
type ProgressReporter interface {
	SetPageProgress(fn PageProgressFunc)
}
