package browser

import (
	"context"
	"math/rand"
	"time"
)

// Viewport is the fixed window size every session renders at.
type Viewport struct {
	Width  int
	Height int
}

// Identity is what the target site sees of us for one session.
type Identity struct {
	UserAgent string
	Viewport  Viewport
}

// RotateIdentity picks a user agent at random. The viewport stays fixed so
// layouts render consistently across sessions.
func RotateIdentity(rng *rand.Rand, agents []string, vp Viewport) Identity {
	id := Identity{Viewport: vp}
	if len(agents) > 0 {
		id.UserAgent = agents[rng.Intn(len(agents))]
	}
	return id
}

// LaunchArgs are the Chromium flags that hide automation.
var LaunchArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--disable-extensions",
	"--disable-plugins",
	"--disable-blink-features=AutomationControlled",
	"--disable-infobars",
	"--no-first-run",
	"--disable-default-apps",
}

// StealthScript runs before any page script in every new document.
const StealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Array;
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Promise;
delete window.cdc_adoQpoasnfa76pfcZLmcfl_Symbol;
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`

// RandomDelay returns a duration between min and max, inclusive of min.
func RandomDelay(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)+1))
}

// HumanScroll scrolls down in steps, then slightly back up, so lazily
// rendered result lists get populated before the document is read. A nil
// sleep uses a real timer.
func HumanScroll(ctx context.Context, page Page, rng *rand.Rand, sleep func(context.Context, time.Duration) error) error {
	if sleep == nil {
		sleep = sleepCtx
	}
	for i := 0; i < 4; i++ {
		if err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return err
		}
		if err := sleep(ctx, RandomDelay(rng, 200*time.Millisecond, 600*time.Millisecond)); err != nil {
			return err
		}
	}
	//scroll back up a bit
	return page.Evaluate("window.scrollBy(0, -200)")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
