package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for the process-wide request quota.
const (
	DefaultGlobalPerSecond = 50
	DefaultGlobalBurst     = 50
)

// GlobalGate enforces the platform-wide request quota shared by every route.
// It combines a steady-state token bucket with a hard block window set when
// the server answers a global 429. Wait observes both: the block window
// first, then the limiter.
type GlobalGate struct {
	limiter *rate.Limiter

	mu           sync.Mutex
	blockedUntil time.Time
}

// NewGlobalGate creates a gate admitting perSecond requests per second with
// the given burst. Non-positive arguments fall back to the defaults.
func NewGlobalGate(perSecond float64, burst int) *GlobalGate {
	if perSecond <= 0 {
		perSecond = DefaultGlobalPerSecond
	}
	if burst <= 0 {
		burst = DefaultGlobalBurst
	}
	return &GlobalGate{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Wait blocks until the caller may proceed under the global quota. It
// returns early with ctx.Err() on cancellation.
func (g *GlobalGate) Wait(ctx context.Context) error {
	if wait := g.BlockedFor(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return g.limiter.Wait(ctx)
}

// Throttle blocks all callers for d from now, as directed by a global 429.
// A shorter window never truncates a longer one already in force.
func (g *GlobalGate) Throttle(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	g.mu.Lock()
	defer g.mu.Unlock()
	if until.After(g.blockedUntil) {
		g.blockedUntil = until
	}
}

// BlockedFor returns how long the hard block window has left, or 0 when the
// gate is only limited by the steady-state quota.
func (g *GlobalGate) BlockedFor() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if wait := time.Until(g.blockedUntil); wait > 0 {
		return wait
	}
	return 0
}
