package browser

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// request counts past which pacing slows down
	slowdownAfter     = 20
	hardSlowdownAfter = 50
)

// Pacer decides how long to space outbound page loads.
type Pacer struct {
	Min time.Duration
	Max time.Duration

	mu      sync.Mutex
	rng     *rand.Rand
	limiter *rate.Limiter
}

// NewPacer draws delays from [min, max]. perMinute > 0 additionally caps the
// request rate with a token bucket of burst 1.
func NewPacer(min, max time.Duration, perMinute int, rng *rand.Rand) *Pacer {
	if max < min {
		max = min
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := &Pacer{Min: min, Max: max, rng: rng}
	if perMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return p
}

// Delay returns the spacing required before request number count+1.
// After 20 requests it grows by 1.5x, and after 50 by a further 2x.
func (p *Pacer) Delay(count int) time.Duration {
	p.mu.Lock()
	d := float64(RandomDelay(p.rng, p.Min, p.Max))
	p.mu.Unlock()

	if count > slowdownAfter {
		d *= 1.5
	}
	if count > hardSlowdownAfter {
		d *= 2.0
	}
	return time.Duration(d)
}

// Wait blocks on the hard rate ceiling, if one is configured.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
