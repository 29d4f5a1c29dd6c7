// Package worker runs one search at a time off the caller's goroutine and
// reports progress through a notify.Notifier.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"
	"go-jobscout/internal/notify"
	"go-jobscout/internal/scraper"
	"go-jobscout/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrBusy is returned by Start while another run is in progress.
var ErrBusy = errors.New("a search is already running")

//progress milestones
const (
	progressInit       = 5
	progressConnect    = 15
	progressNavigate   = 25
	progressSearch     = 35
	progressProcessing = 95
	progressDone       = 100
)

type Option func(*Runner)

// WithStore makes each run that found jobs replace the store contents with
// them before JobsFound is sent.
func WithStore(st *store.Store) Option {
	return func(r *Runner) { r.store = st }
}

func WithLogger(log *logrus.Entry) Option {
	return func(r *Runner) { r.log = log }
}

type Runner struct {
	searcher scraper.Searcher
	notifier notify.Notifier
	store    *store.Store
	log      *logrus.Entry

	mu      sync.Mutex
	running bool
	runID   string
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(searcher scraper.Searcher, notifier notify.Notifier, opts ...Option) *Runner {
	r := &Runner{searcher: searcher, notifier: notifier}
	for _, o := range opts {
		o(r)
	}
	if r.notifier == nil {
		r.notifier = notify.Multi{}
	}
	r.log = logging.OrDiscard(r.log)
	return r
}

// Start launches a run and returns its ID without waiting for it. The run
// lives until it finishes, ctx is cancelled, or Cancel is called, so pass a
// context that outlives the request that asked for it.
func (r *Runner) Start(ctx context.Context, req models.SearchRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return "", ErrBusy
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.runID = runID
	r.cancel = cancel
	r.done = make(chan struct{})

	if rt, ok := r.notifier.(notify.RunTracker); ok {
		rt.StartRun(runID)
	}
	go r.run(runCtx, runID, req.Normalize(), r.done)
	return runID, nil
}

// Running reports whether a run is in progress.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunID is the ID of the current or most recent run.
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// Cancel asks the current run to stop. The run still reports what it had
// collected. False when nothing is running.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running || r.cancel == nil {
		return false
	}
	r.log.WithField("run_id", r.runID).Info("🛑 Cancelling search")
	r.cancel()
	return true
}

// Wait blocks until the current run, if any, has finished.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Cleanup stops any run and releases the browser. Safe to call at any time.
func (r *Runner) Cleanup() {
	r.Cancel()
	r.Wait()
	r.searcher.Close()
}

func (r *Runner) run(ctx context.Context, runID string, req models.SearchRequest, done chan struct{}) {
	log := r.log.WithField("run_id", runID)
	n := r.notifier

	defer func() {
		if p := recover(); p != nil {
			log.Errorf("❌ Error during job search: %v", p)
			n.ProgressPercent(0)
			n.Finished(false, fmt.Sprintf("Error during job search: %v", p))
		}
		r.mu.Lock()
		r.cancel()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
		close(done)
	}()

	log.Infof("🚀 Search started: %s", req.Describe())
	n.StatusMessage(fmt.Sprintf("Initializing %s scraper...", r.searcher.Name()))
	n.ProgressPercent(progressInit)
	n.StatusMessage(fmt.Sprintf("Connecting to %s...", r.searcher.Name()))
	n.ProgressPercent(progressConnect)
	n.StatusMessage(fmt.Sprintf("Navigating to %s jobs page...", r.searcher.Name()))
	n.ProgressPercent(progressNavigate)
	n.StatusMessage(fmt.Sprintf("Searching for %s...", req.Describe()))
	n.ProgressPercent(progressSearch)

	if pr, ok := r.searcher.(scraper.ProgressReporter); ok {
		pr.SetPageProgress(func(page, total int) {
			n.StatusMessage(fmt.Sprintf("Scraping page %d of %d...", page, total))
			n.ProgressPercent(pagePercent(page, total))
		})
		defer pr.SetPageProgress(nil)
	}

	jobs := r.searcher.Search(ctx, req)
	cancelled := ctx.Err() != nil

	if len(jobs) > 0 {
		n.StatusMessage(fmt.Sprintf("Processing %d job listings...", len(jobs)))
		n.ProgressPercent(progressProcessing)
		if r.store != nil {
			r.store.Replace(jobs)
		}
		n.JobsFound(jobs)
	}
	n.ProgressPercent(progressDone)

	switch {
	case cancelled:
		log.Warnf("🛑 Search cancelled with %d jobs collected", len(jobs))
		n.Finished(false, fmt.Sprintf("Search cancelled after collecting %d jobs", len(jobs)))
	case len(jobs) == 0:
		log.Warn("📭 Search finished without results")
		n.Finished(false, "No jobs found matching your criteria. Try different search terms or check your internet connection.")
	default:
		log.Infof("✅ Search finished with %d jobs", len(jobs))
		n.Finished(true, fmt.Sprintf("Successfully found %d jobs", len(jobs)))
	}
}

// pagePercent spreads page progress between the search and processing milestones.
func pagePercent(page, total int) int {
	if total <= 0 {
		return progressSearch
	}
	if page > total {
		page = total
	}
	return progressSearch + (progressProcessing-progressSearch)*(page-1)/total
}
