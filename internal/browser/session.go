package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go-jobscout/internal/config"

	"github.com/sirupsen/logrus"
)

// Options tunes a Session. Zero durations fall back to the config defaults.
type Options struct {
	UserAgents []string
	Viewport   Viewport

	PageLoadTimeout time.Duration
	ElementTimeout  time.Duration
	StaleRetryPause time.Duration

	BaseDelay         time.Duration
	MaxDelay          time.Duration
	MaxRetryAttempts  int
	RequestsPerMinute int

	MaxRequests int
	MaxAge      time.Duration

	ScreenshotDir string
}

// OptionsFromConfig maps the config file onto session options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UserAgents:        cfg.Browser.UserAgents,
		Viewport:          Viewport{Width: cfg.Browser.ViewportWidth, Height: cfg.Browser.ViewportHeight},
		PageLoadTimeout:   cfg.Browser.PageLoadTimeout,
		ElementTimeout:    cfg.Browser.ElementTimeout,
		StaleRetryPause:   cfg.Browser.StaleRetryPause,
		BaseDelay:         cfg.Scraper.MinDelay,
		MaxDelay:          cfg.Scraper.MaxDelay,
		MaxRetryAttempts:  cfg.Scraper.MaxRetryAttempts,
		RequestsPerMinute: cfg.Scraper.MaxRequestsPerMinute,
		MaxRequests:       cfg.Browser.SessionMaxRequests,
		MaxAge:            cfg.Browser.SessionMaxAge,
		ScreenshotDir:     cfg.Browser.ScreenshotDir,
	}
}

func (o Options) withDefaults() Options {
	d := OptionsFromConfig(config.Default())
	if len(o.UserAgents) == 0 {
		o.UserAgents = d.UserAgents
	}
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = d.Viewport
	}
	if o.PageLoadTimeout <= 0 {
		o.PageLoadTimeout = d.PageLoadTimeout
	}
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = d.ElementTimeout
	}
	if o.MaxRequests <= 0 {
		o.MaxRequests = d.MaxRequests
	}
	if o.MaxAge <= 0 {
		o.MaxAge = d.MaxAge
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = o.BaseDelay
	}
	return o
}

// State is the per-session bookkeeping. It is reset on every refresh.
type State struct {
	RequestCount  int
	LastRequestAt time.Time
	StartedAt     time.Time
	Identity      Identity
	Valid         bool
}

// Session owns the one browser handle used by a scrape. Callers never touch
// the handle directly; every operation reports failure as a sentinel
// (false, "" or nil) and recovers the session where it can.
type Session struct {
	opts     Options
	launcher Launcher
	pacer    *Pacer
	shots    *ScreenshotDebugger
	log      *logrus.Entry

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.Mutex
	page  Page
	state State
}

type SessionOption func(*Session)

func WithLogger(log *logrus.Entry) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithClock replaces the wall clock and sleep function, for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = rng }
}

func NewSession(launcher Launcher, opts Options, options ...SessionOption) *Session {
	s := &Session{
		opts:     opts.withDefaults(),
		launcher: launcher,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, o := range options {
		o(s)
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.pacer = NewPacer(s.opts.BaseDelay, s.opts.MaxDelay, s.opts.RequestsPerMinute, rand.New(rand.NewSource(s.rng.Int63())))
	s.shots = NewScreenshotDebugger(s.opts.ScreenshotDir, s.log)
	s.state.StartedAt = s.now()
	return s
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) currentPage() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) markInvalid() {
	s.mu.Lock()
	s.state.Valid = false
	s.mu.Unlock()
}

func (s *Session) randomBetween(min, max time.Duration) time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return RandomDelay(s.rng, min, max)
}

// EnsureSession returns a live page, starting a browser if there is none or
// the current one is invalid, and refreshing it once it exceeds its limits.
func (s *Session) EnsureSession(ctx context.Context) (Page, error) {
	s.mu.Lock()
	page, valid := s.page, s.state.Valid
	s.mu.Unlock()

	if page != nil && valid {
		if !s.shouldRefresh() {
			return page, nil
		}
		s.log.Info("♻️ Refreshing session due to limits")
		if err := s.RefreshSession(ctx); err != nil {
			return nil, err
		}
		if p := s.currentPage(); p != nil {
			return p, nil
		}
		return nil, ErrNoSession
	}

	if page != nil {
		s.Teardown()
	}
	return s.start(ctx)
}

func (s *Session) shouldRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RequestCount >= s.opts.MaxRequests {
		return true
	}
	return s.now().Sub(s.state.StartedAt) > s.opts.MaxAge
}

func (s *Session) start(ctx context.Context) (Page, error) {
	s.rngMu.Lock()
	id := RotateIdentity(s.rng, s.opts.UserAgents, s.opts.Viewport)
	s.rngMu.Unlock()

	page, err := s.launcher.Launch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s.mu.Lock()
	s.page = page
	s.state.Identity = id
	s.state.Valid = true
	s.state.StartedAt = s.now()
	s.mu.Unlock()

	s.log.WithField("user_agent", id.UserAgent).Info("🌐 Browser session started")
	return page, nil
}

// RefreshSession tears down the current handle, resets all counters and
// starts a fresh browser with a newly rotated identity.
func (s *Session) RefreshSession(ctx context.Context) error {
	s.log.Info("♻️ Refreshing browser session...")
	s.Teardown()

	s.mu.Lock()
	s.state = State{StartedAt: s.now()}
	s.mu.Unlock()

	if _, err := s.start(ctx); err != nil {
		s.log.Errorf("❌ Error refreshing session: %v", err)
		return err
	}
	s.log.Info("✅ Session refreshed successfully")
	return nil
}

// Teardown releases the browser and clears the request bookkeeping, so the
// next browser starts with fresh counters. Safe to call repeatedly or with no
// session.
func (s *Session) Teardown() {
	s.mu.Lock()
	page := s.page
	s.page = nil
	s.state = State{}
	s.mu.Unlock()

	if page == nil {
		return
	}
	if err := page.Close(); err != nil {
		s.log.Warnf("⚠️ Error during browser cleanup: %v", err)
	}
}

// ApplyRequestDelay enforces the pacing policy before a page load and
// records the request.
func (s *Session) ApplyRequestDelay(ctx context.Context) {
	if err := s.pacer.Wait(ctx); err != nil {
		return
	}

	s.mu.Lock()
	count, last := s.state.RequestCount, s.state.LastRequestAt
	s.mu.Unlock()

	delay := s.pacer.Delay(count)
	if !last.IsZero() {
		if elapsed := s.now().Sub(last); elapsed < delay {
			wait := delay - elapsed
			s.log.Debugf("⏳ Applying delay: %.2f seconds", wait.Seconds())
			_ = s.sleep(ctx, wait)
		}
	}

	s.mu.Lock()
	s.state.LastRequestAt = s.now()
	s.state.RequestCount++
	s.mu.Unlock()
}

// Navigate paces, loads url and waits for the document to be ready.
func (s *Session) Navigate(ctx context.Context, url string) bool {
	s.ApplyRequestDelay(ctx)
	if err := s.load(ctx, url); err != nil {
		s.log.Warnf("⚠️ Error navigating to %s: %v", url, err)
		return false
	}
	return true
}

func (s *Session) load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := s.EnsureSession(ctx)
	if err != nil {
		return err
	}
	if err := page.Goto(url, s.opts.PageLoadTimeout); err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			s.markInvalid()
		}
		return err
	}
	if err := page.WaitReady(s.opts.PageLoadTimeout); err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			s.markInvalid()
		}
		return fmt.Errorf("page load: %w", err)
	}
	return nil
}

// NavigateWithRetry tries maxAttempts+1 times with exponential backoff of
// 2^attempt * base delay. An invalid session is refreshed before the next try.
// A negative maxAttempts uses the configured value.
func (s *Session) NavigateWithRetry(ctx context.Context, url string, maxAttempts int) bool {
	if maxAttempts < 0 {
		maxAttempts = s.opts.MaxRetryAttempts
	}

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		if attempt > 0 {
			retryDelay := time.Duration(1<<uint(attempt)) * s.opts.BaseDelay
			s.log.Infof("🔁 Retry attempt %d, waiting %.2f seconds", attempt, retryDelay.Seconds())
			if err := s.sleep(ctx, retryDelay); err != nil {
				return false
			}
		} else {
			s.ApplyRequestDelay(ctx)
		}
		if ctx.Err() != nil {
			return false
		}

		err := s.load(ctx, url)
		if err == nil {
			s.log.Infof("✅ Successfully loaded: %s", url)
			return true
		}

		switch {
		case errors.Is(err, ErrSessionInvalid):
			s.log.Warn("⚠️ Invalid session, recreating browser")
			_ = s.RefreshSession(ctx)
		case errors.Is(err, ErrTimeout):
			s.log.Warnf("⏱️ Timeout on attempt %d: %v", attempt+1, err)
		default:
			s.log.Warnf("⚠️ Error on attempt %d: %v", attempt+1, err)
		}
	}

	s.log.Errorf("❌ Failed to load URL after %d attempts: %s", maxAttempts+1, url)
	return false
}

// WaitForElement polls until selector matches. Returns nil on timeout or error.
func (s *Session) WaitForElement(ctx context.Context, selector string, timeout time.Duration) Element {
	if ctx.Err() != nil {
		return nil
	}
	page, err := s.EnsureSession(ctx)
	if err != nil {
		return nil
	}
	if timeout <= 0 {
		timeout = s.opts.ElementTimeout
	}
	el, err := page.WaitForSelector(selector, timeout)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			s.markInvalid()
		}
		s.log.Debugf("Element not found: %s (%v)", selector, err)
		return nil
	}
	return el
}

// WaitForElementWithRetry is WaitForElement plus a liveness probe; a stale
// element is looked up again up to maxRetries times after a short pause.
func (s *Session) WaitForElementWithRetry(ctx context.Context, selector string, timeout time.Duration, maxRetries int) Element {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		el := s.WaitForElement(ctx, selector, timeout)
		if el == nil {
			return nil
		}

		attached, err := el.Attached()
		if err == nil && attached {
			return el
		}
		if err != nil && !errors.Is(err, ErrStale) {
			s.log.Debugf("Error probing element %s: %v", selector, err)
			return nil
		}

		s.log.Debugf("Stale element on attempt %d, retrying...", attempt+1)
		if attempt == maxRetries {
			break
		}
		if err := s.sleep(ctx, s.opts.StaleRetryPause); err != nil {
			return nil
		}
	}
	s.log.Warnf("⚠️ Element remained stale after %d attempts: %s", maxRetries+1, selector)
	return nil
}

// FindElements returns every element matching selector, or none on error.
func (s *Session) FindElements(ctx context.Context, selector string) []Element {
	page, err := s.EnsureSession(ctx)
	if err != nil {
		return nil
	}
	els, err := page.QueryAll(selector)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			s.markInvalid()
		}
		s.log.Debugf("Error finding elements %s: %v", selector, err)
		return nil
	}
	return els
}

// PageSourceSafe returns the rendered document, or "" when it cannot be read.
// An invalid session is refreshed as a side effect, and the blank page of the
// new browser is not reported as a document.
func (s *Session) PageSourceSafe(ctx context.Context) string {
	s.mu.Lock()
	live := s.page != nil && s.state.Valid
	s.mu.Unlock()

	page, err := s.EnsureSession(ctx)
	if err != nil || !live {
		return ""
	}
	html, err := page.Content()
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			s.log.Warn("⚠️ Invalid session while getting page source, refreshing...")
			_ = s.RefreshSession(ctx)
		} else {
			s.log.Warnf("⚠️ Error getting page source: %v", err)
		}
		return ""
	}
	return html
}

// CurrentURL is the address of the live page, or "" without a session.
func (s *Session) CurrentURL(ctx context.Context) string {
	page := s.currentPage()
	if page == nil {
		return ""
	}
	return page.URL()
}

// ScrollPage scrolls like a person reading, to trigger lazy-loaded content.
func (s *Session) ScrollPage(ctx context.Context) {
	page := s.currentPage()
	if page == nil {
		return
	}
	s.rngMu.Lock()
	rng := rand.New(rand.NewSource(s.rng.Int63()))
	s.rngMu.Unlock()
	if err := HumanScroll(ctx, page, rng, s.sleep); err != nil {
		s.log.Debugf("Scroll failed: %v", err)
	}
}

// Sleep pauses for d unless ctx is cancelled first.
func (s *Session) Sleep(ctx context.Context, d time.Duration) {
	_ = s.sleep(ctx, d)
}
