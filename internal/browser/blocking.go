package browser

import (
	"context"
	"strings"
	"time"
)

// BlockingIndicators are the phrases that mark a CAPTCHA or block page.
var BlockingIndicators = []string{
	"captcha",
	"blocked",
	"rate limit",
	"too many requests",
	"access denied",
	"forbidden",
	"security check",
	"unusual activity",
}

// DetectBlocking returns the first indicator found in document, case-insensitively.
func DetectBlocking(document string) (string, bool) {
	if document == "" {
		return "", false
	}
	lower := strings.ToLower(document)
	for _, indicator := range BlockingIndicators {
		if strings.Contains(lower, indicator) {
			return indicator, true
		}
	}
	return "", false
}

// IsBlockedOrCaptcha reports whether document looks like a block or CAPTCHA page.
func IsBlockedOrCaptcha(document string) bool {
	_, blocked := DetectBlocking(document)
	return blocked
}

// IsBlockedOrCaptcha checks document, or the current page when document is
// empty, and saves a screenshot when a block is detected.
func (s *Session) IsBlockedOrCaptcha(ctx context.Context, document string) bool {
	if document == "" {
		document = s.PageSourceSafe(ctx)
	}
	indicator, blocked := DetectBlocking(document)
	if !blocked {
		return false
	}
	s.log.Warnf("🛡️ Blocking detected: %s", indicator)
	if page := s.currentPage(); page != nil {
		_, _ = s.shots.CaptureAndLog(page, "blocked", "🚨 Block or CAPTCHA page detected")
	}
	return true
}

// HandleRateLimiting backs off after the site pushed back, then starts a
// fresh session with a new identity.
func (s *Session) HandleRateLimiting(ctx context.Context, hint string) error {
	hint = strings.ToLower(hint)
	s.log.Warn("⏳ Rate limiting detected, implementing countermeasures...")

	var wait time.Duration
	switch {
	case strings.Contains(hint, "rate limit"), strings.Contains(hint, "429"), strings.Contains(hint, "too many"):
		wait = s.randomBetween(30*time.Second, 60*time.Second)
	case strings.Contains(hint, "blocked"), strings.Contains(hint, "403"), strings.Contains(hint, "forbidden"):
		wait = s.randomBetween(60*time.Second, 120*time.Second)
	}
	if wait > 0 {
		s.log.Infof("⏳ Backing off for %v", wait.Round(time.Millisecond))
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return s.RefreshSession(ctx)
}
