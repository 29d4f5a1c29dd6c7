package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-jobscout/internal/logging"
	"go-jobscout/internal/models"
	"go-jobscout/internal/notify"
	"go-jobscout/internal/scraper"
	"go-jobscout/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	mu       sync.Mutex
	jobs     []models.JobRecord
	pages    int
	block    chan struct{}
	panicMsg string
	progress scraper.PageProgressFunc
	reqs     []models.SearchRequest
	closes   int
}

func (f *fakeSearcher) Name() string { return "LinkedIn" }

func (f *fakeSearcher) SetPageProgress(fn scraper.PageProgressFunc) {
	f.mu.Lock()
	f.progress = fn
	f.mu.Unlock()
}

func (f *fakeSearcher) Search(ctx context.Context, req models.SearchRequest) []models.JobRecord {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	progress := f.progress
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	for p := 1; p <= f.pages && progress != nil; p++ {
		progress(p, f.pages)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return f.jobs[:1]
		}
	}
	return f.jobs
}

func (f *fakeSearcher) Close() {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
}

func jobs(ids ...string) []models.JobRecord {
	out := make([]models.JobRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.JobRecord{ID: id, Title: "Engineer " + id, Organization: "Acme", Status: models.StatusNotReviewed})
	}
	return out
}

// drain reads events until the finished event arrives.
func drain(t *testing.T, c *notify.Channel) []notify.Event {
	t.Helper()
	var got []notify.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			got = append(got, ev)
			if ev.Kind == notify.KindFinished {
				return got
			}
		case <-timeout:
			t.Fatalf("no finished event, got %d events", len(got))
		}
	}
}

func percents(events []notify.Event) []int {
	var out []int
	for _, ev := range events {
		if ev.Kind == notify.KindProgress {
			out = append(out, ev.Percent)
		}
	}
	return out
}

func count(events []notify.Event, kind notify.Kind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestRunner_SuccessfulRun(t *testing.T) {
	searcher := &fakeSearcher{jobs: jobs("1", "2", "3"), pages: 2}
	events := notify.NewChannel(64)
	st := store.New()
	st.Add(jobs("old")...)
	r := New(searcher, events, WithStore(st), WithLogger(logging.Discard()))

	runID, err := r.Start(context.Background(), models.SearchRequest{Title: " Engineer ", MaxPages: 2})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	got := drain(t, events)
	r.Wait()

	assert.Equal(t, []int{5, 15, 25, 35, 35, 65, 95, 100}, percents(got))
	assert.Equal(t, 1, count(got, notify.KindJobs), "jobs sent exactly once")
	last := got[len(got)-1]
	assert.True(t, last.Success)
	assert.Equal(t, "Successfully found 3 jobs", last.Message)
	for _, ev := range got {
		assert.Equal(t, runID, ev.RunID)
	}

	assert.Equal(t, "Engineer", searcher.reqs[0].Title, "request normalized")
	assert.Equal(t, models.FilterAll, searcher.reqs[0].Category)
	assert.Equal(t, 3, st.Len())
	_, stale := st.Get("old")
	assert.False(t, stale, "store replaced")
	assert.False(t, r.Running())
	assert.Equal(t, runID, r.RunID())
}

func TestRunner_NoResults(t *testing.T) {
	events := notify.NewChannel(64)
	r := New(&fakeSearcher{}, events)

	_, err := r.Start(context.Background(), models.SearchRequest{})
	require.NoError(t, err)
	got := drain(t, events)

	assert.Equal(t, 0, count(got, notify.KindJobs))
	assert.False(t, got[len(got)-1].Success)
	assert.Contains(t, got[len(got)-1].Message, "No jobs found")
}

func TestRunner_BusyWhileRunning(t *testing.T) {
	searcher := &fakeSearcher{jobs: jobs("1"), block: make(chan struct{})}
	events := notify.NewChannel(64)
	r := New(searcher, events)

	_, err := r.Start(context.Background(), models.SearchRequest{})
	require.NoError(t, err)
	assert.True(t, r.Running())

	_, err = r.Start(context.Background(), models.SearchRequest{})
	assert.ErrorIs(t, err, ErrBusy)

	close(searcher.block)
	drain(t, events)
	r.Wait()

	_, err = r.Start(context.Background(), models.SearchRequest{})
	assert.NoError(t, err, "free again after finishing")
	drain(t, events)
}

func TestRunner_Cancel(t *testing.T) {
	searcher := &fakeSearcher{jobs: jobs("1", "2"), block: make(chan struct{})}
	events := notify.NewChannel(64)
	r := New(searcher, events)

	assert.False(t, r.Cancel(), "nothing to cancel")
	_, err := r.Start(context.Background(), models.SearchRequest{})
	require.NoError(t, err)
	assert.True(t, r.Cancel())

	got := drain(t, events)
	assert.Equal(t, 1, count(got, notify.KindJobs), "partial results still delivered")
	last := got[len(got)-1]
	assert.False(t, last.Success)
	assert.Equal(t, "Search cancelled after collecting 1 jobs", last.Message)
}

func TestRunner_RecoversPanic(t *testing.T) {
	events := notify.NewChannel(64)
	r := New(&fakeSearcher{panicMsg: "browser exploded"}, events)

	_, err := r.Start(context.Background(), models.SearchRequest{})
	require.NoError(t, err)
	got := drain(t, events)
	r.Wait()

	last := got[len(got)-1]
	assert.False(t, last.Success)
	assert.Equal(t, "Error during job search: browser exploded", last.Message)
	assert.Equal(t, 0, percents(got)[len(percents(got))-1])
	assert.False(t, r.Running())
}

func TestRunner_Cleanup(t *testing.T) {
	searcher := &fakeSearcher{jobs: jobs("1"), block: make(chan struct{})}
	events := notify.NewChannel(64)
	r := New(searcher, events)

	r.Cleanup()
	assert.Equal(t, 1, searcher.closes, "cleanup without a run")

	_, err := r.Start(context.Background(), models.SearchRequest{})
	require.NoError(t, err)
	r.Cleanup()

	assert.False(t, r.Running())
	assert.Equal(t, 2, searcher.closes)
}

func TestPagePercent(t *testing.T) {
	assert.Equal(t, 35, pagePercent(1, 3))
	assert.Equal(t, 55, pagePercent(2, 3))
	assert.Equal(t, 75, pagePercent(3, 3))
	assert.Equal(t, 75, pagePercent(9, 3))
	assert.Equal(t, 35, pagePercent(1, 0))
}
