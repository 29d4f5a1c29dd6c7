package browser_test

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go-jobscout/internal/browser"
	"go-jobscout/internal/browser/browsertest"
	"go-jobscout/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func testOptions() browser.Options {
	return browser.Options{
		UserAgents:       []string{"agent-a", "agent-b"},
		BaseDelay:        time.Second,
		MaxDelay:         time.Second,
		MaxRetryAttempts: 3,
		StaleRetryPause:  time.Millisecond,
	}
}

func newTestSession(t *testing.T, l *browsertest.Launcher, opts browser.Options) (*browser.Session, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	s := browser.NewSession(l, opts,
		browser.WithClock(nil, rec.sleep),
		browser.WithRand(rand.New(rand.NewSource(1))),
		browser.WithLogger(logging.Discard()),
	)
	t.Cleanup(s.Teardown)
	return s, rec
}

func TestNavigateWithRetry_ExhaustsAttempts(t *testing.T) {
	page := browsertest.NewPage()
	page.GotoErrs = []error{browser.ErrTimeout, browser.ErrTimeout, browser.ErrTimeout}
	l := &browsertest.Launcher{Page: page}
	s, rec := newTestSession(t, l, testOptions())

	ok := s.NavigateWithRetry(context.Background(), "https://example.com/jobs", 2)

	assert.False(t, ok)
	assert.Equal(t, 3, page.GotoCount(), "maxAttempts+1 tries")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.all(), "exponential backoff")
}

func TestNavigateWithRetry_SucceedsAfterTimeout(t *testing.T) {
	page := browsertest.NewPage()
	page.GotoErrs = []error{browser.ErrTimeout}
	l := &browsertest.Launcher{Page: page}
	s, _ := newTestSession(t, l, testOptions())

	assert.True(t, s.NavigateWithRetry(context.Background(), "https://example.com/jobs", -1))
	assert.Equal(t, 2, page.GotoCount())
	assert.Equal(t, "https://example.com/jobs", s.CurrentURL(context.Background()))
}

func TestNavigateWithRetry_RefreshesInvalidSession(t *testing.T) {
	page := browsertest.NewPage()
	page.GotoErrs = []error{fmt.Errorf("%w: target closed", browser.ErrSessionInvalid)}
	l := &browsertest.Launcher{Page: page}
	s, _ := newTestSession(t, l, testOptions())

	ok := s.NavigateWithRetry(context.Background(), "https://example.com/jobs", 2)

	require.True(t, ok)
	assert.Equal(t, 2, l.Launches(), "invalid session relaunches the browser")
	assert.GreaterOrEqual(t, page.Closes, 1)
}

func TestNavigate_ReportsFailureWithoutSession(t *testing.T) {
	l := &browsertest.Launcher{Err: fmt.Errorf("no chromium")}
	s, _ := newTestSession(t, l, testOptions())

	assert.False(t, s.Navigate(context.Background(), "https://example.com"))
	assert.Equal(t, "", s.PageSourceSafe(context.Background()))
	assert.Nil(t, s.WaitForElement(context.Background(), "#x", time.Second))
	assert.Empty(t, s.FindElements(context.Background(), "#x"))
}

func TestEnsureSession_RefreshesAtRequestCap(t *testing.T) {
	opts := testOptions()
	opts.MaxRequests = 2
	l := &browsertest.Launcher{}
	s, _ := newTestSession(t, l, opts)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, s.Navigate(ctx, "https://example.com"))
	}

	assert.Equal(t, 2, l.Launches())
	assert.Equal(t, 1, s.Snapshot().RequestCount, "counters reset on refresh")
}

func TestEnsureSession_RefreshesWhenTooOld(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	l := &browsertest.Launcher{}
	s := browser.NewSession(l, testOptions(),
		browser.WithClock(clock, func(context.Context, time.Duration) error { return nil }),
		browser.WithLogger(logging.Discard()),
	)
	defer s.Teardown()
	ctx := context.Background()

	_, err := s.EnsureSession(ctx)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(61 * time.Minute)
	mu.Unlock()

	_, err = s.EnsureSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Launches())
	assert.True(t, s.Snapshot().StartedAt.Equal(now))
}

func TestRefreshSession_RotatesIdentityAndResets(t *testing.T) {
	l := &browsertest.Launcher{}
	s, _ := newTestSession(t, l, testOptions())
	ctx := context.Background()

	require.True(t, s.Navigate(ctx, "https://example.com"))
	require.NoError(t, s.RefreshSession(ctx))

	st := s.Snapshot()
	assert.Equal(t, 0, st.RequestCount)
	assert.True(t, st.LastRequestAt.IsZero())
	assert.True(t, st.Valid)
	assert.Contains(t, []string{"agent-a", "agent-b"}, st.Identity.UserAgent)
	assert.Equal(t, 1920, st.Identity.Viewport.Width)
}

func TestTeardown_Idempotent(t *testing.T) {
	page := browsertest.NewPage()
	l := &browsertest.Launcher{Page: page}
	s, _ := newTestSession(t, l, testOptions())

	s.Teardown()
	_, err := s.EnsureSession(context.Background())
	require.NoError(t, err)

	s.Teardown()
	s.Teardown()
	assert.Equal(t, 1, page.Closes)
	assert.False(t, s.Snapshot().Valid)
}

func TestWaitForElementWithRetry_Stale(t *testing.T) {
	t.Run("recovers", func(t *testing.T) {
		el := &browsertest.Element{StaleProbes: 2}
		page := browsertest.NewPage().Add("#search", el)
		s, rec := newTestSession(t, &browsertest.Launcher{Page: page}, testOptions())

		got := s.WaitForElementWithRetry(context.Background(), "#search", time.Second, 3)

		assert.Same(t, el, got)
		assert.Equal(t, 3, el.Probes)
		assert.Len(t, rec.all(), 2)
	})

	t.Run("gives up", func(t *testing.T) {
		el := &browsertest.Element{StaleProbes: 10}
		page := browsertest.NewPage().Add("#search", el)
		s, _ := newTestSession(t, &browsertest.Launcher{Page: page}, testOptions())

		assert.Nil(t, s.WaitForElementWithRetry(context.Background(), "#search", time.Second, 2))
		assert.Equal(t, 3, el.Probes)
	})

	t.Run("missing", func(t *testing.T) {
		s, _ := newTestSession(t, &browsertest.Launcher{}, testOptions())
		assert.Nil(t, s.WaitForElementWithRetry(context.Background(), "#nope", time.Second, 2))
	})
}

func TestPageSourceSafe_RefreshesOnInvalidSession(t *testing.T) {
	page := browsertest.NewPage()
	page.Docs["https://example.com"] = "<html>jobs</html>"
	l := &browsertest.Launcher{Page: page}
	s, _ := newTestSession(t, l, testOptions())
	ctx := context.Background()

	require.True(t, s.Navigate(ctx, "https://example.com"))
	assert.Equal(t, "<html>jobs</html>", s.PageSourceSafe(ctx))

	page.ContentErr = browser.ErrSessionInvalid
	assert.Equal(t, "", s.PageSourceSafe(ctx))
	assert.Equal(t, 2, l.Launches())
}

func TestPageSourceSafe_EmptyAfterInvalidation(t *testing.T) {
	page := browsertest.NewPage()
	page.Docs["https://example.com"] = "<html>jobs</html>"
	l := &browsertest.Launcher{Page: page}
	s, _ := newTestSession(t, l, testOptions())
	ctx := context.Background()

	require.True(t, s.Navigate(ctx, "https://example.com"))
	page.GotoErrs = []error{fmt.Errorf("%w: target closed", browser.ErrSessionInvalid)}
	require.False(t, s.Navigate(ctx, "https://example.com/next"))
	require.False(t, s.Snapshot().Valid)

	assert.Equal(t, "", s.PageSourceSafe(ctx), "fresh browser has no document yet")
	assert.Equal(t, 2, l.Launches(), "session refreshed")
	assert.True(t, s.Snapshot().Valid)
	assert.Equal(t, "<html>jobs</html>", s.PageSourceSafe(ctx))
}

func TestPageSourceSafe_NoDocumentBeforeNavigation(t *testing.T) {
	l := &browsertest.Launcher{}
	s, _ := newTestSession(t, l, testOptions())

	assert.Equal(t, "", s.PageSourceSafe(context.Background()))
	assert.Equal(t, 1, l.Launches())
}

func TestTeardown_ResetsBookkeeping(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	l := &browsertest.Launcher{}
	rec := &sleepRecorder{}
	s := browser.NewSession(l, testOptions(),
		browser.WithClock(clock, rec.sleep),
		browser.WithRand(rand.New(rand.NewSource(1))),
		browser.WithLogger(logging.Discard()),
	)
	defer s.Teardown()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.True(t, s.Navigate(ctx, "https://example.com"))
	}
	require.Equal(t, 25, s.Snapshot().RequestCount)

	s.Teardown()
	assert.Equal(t, browser.State{}, s.Snapshot())

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()
	sleepsBefore := len(rec.all())

	require.True(t, s.Navigate(ctx, "https://example.com"))
	st := s.Snapshot()
	assert.Equal(t, 1, st.RequestCount)
	assert.True(t, st.StartedAt.Equal(now))
	assert.Equal(t, 2, l.Launches(), "one launch per run, no refresh for age")
	assert.Len(t, rec.all(), sleepsBefore, "first request of a new browser is not delayed")
}

func TestApplyRequestDelay_SpacesRequests(t *testing.T) {
	opts := testOptions()
	opts.BaseDelay = 40 * time.Millisecond
	opts.MaxDelay = 60 * time.Millisecond
	s := browser.NewSession(&browsertest.Launcher{}, opts, browser.WithLogger(logging.Discard()))
	ctx := context.Background()

	start := time.Now()
	s.ApplyRequestDelay(ctx)
	s.ApplyRequestDelay(ctx)

	assert.GreaterOrEqual(t, time.Since(start), opts.BaseDelay)
	assert.Equal(t, 2, s.Snapshot().RequestCount)
}

func TestPacer_Delay(t *testing.T) {
	p := browser.NewPacer(time.Second, time.Second, 0, rand.New(rand.NewSource(1)))

	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, time.Second, p.Delay(20))
	assert.Equal(t, 1500*time.Millisecond, p.Delay(21))
	assert.Equal(t, 3*time.Second, p.Delay(51))
}

func TestPacer_DelayWithinBounds(t *testing.T) {
	p := browser.NewPacer(3*time.Second, 5*time.Second, 0, rand.New(rand.NewSource(7)))
	for i := 0; i < 100; i++ {
		d := p.Delay(0)
		assert.GreaterOrEqual(t, d, 3*time.Second)
		assert.LessOrEqual(t, d, 5*time.Second)
	}
}

func TestIsBlockedOrCaptcha(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"access denied", "<html><h1>ACCESS Denied</h1></html>", true},
		{"captcha", "<div id='captcha-challenge'>solve</div>", true},
		{"unusual activity", "We noticed Unusual Activity from your network", true},
		{"normal listing", `<ul class="jobs-search__results-list"><li><h3>Go Engineer</h3><h4>Acme</h4></li></ul>`, false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, browser.IsBlockedOrCaptcha(tt.doc))
		})
	}
}

func TestSession_IsBlockedOrCaptcha_Screenshot(t *testing.T) {
	page := browsertest.NewPage()
	page.Docs["https://example.com"] = "<title>Security Check</title>"
	opts := testOptions()
	opts.ScreenshotDir = t.TempDir()
	s, _ := newTestSession(t, &browsertest.Launcher{Page: page}, opts)
	ctx := context.Background()

	require.True(t, s.Navigate(ctx, "https://example.com"))
	assert.True(t, s.IsBlockedOrCaptcha(ctx, ""))
	require.Len(t, page.Shots, 1)
	assert.Equal(t, opts.ScreenshotDir, filepath.Dir(page.Shots[0]))
}

func TestHandleRateLimiting(t *testing.T) {
	l := &browsertest.Launcher{}
	s, rec := newTestSession(t, l, testOptions())

	require.NoError(t, s.HandleRateLimiting(context.Background(), "HTTP 429 Too Many Requests"))

	sleeps := rec.all()
	require.Len(t, sleeps, 1)
	assert.GreaterOrEqual(t, sleeps[0], 30*time.Second)
	assert.LessOrEqual(t, sleeps[0], 60*time.Second)
	assert.Equal(t, 1, l.Launches())
}

func TestLoadCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	data := `[
  {"name": "li_at", "value": "abc", "domain": ".linkedin.com", "secure": true, "sameSite": "Lax"},
  {"name": "", "value": "ignored"},
  {"name": "lang", "value": "v=2&lang=en-us", "domain": ".linkedin.com", "path": "/jobs"}
]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cookies, err := browser.LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	assert.Equal(t, "li_at", cookies[0].Name)
	require.NotNil(t, cookies[0].Path)
	assert.Equal(t, "/", *cookies[0].Path)
	require.NotNil(t, cookies[0].Secure)
	assert.True(t, *cookies[0].Secure)
	assert.NotNil(t, cookies[0].SameSite)
	assert.Equal(t, "/jobs", *cookies[1].Path)
}

func TestLoadCookies_MissingFile(t *testing.T) {
	_, err := browser.LoadCookies(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
