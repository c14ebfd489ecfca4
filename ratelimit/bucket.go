package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/c360/chatkit/errors"
)

// unknownHashPrefix marks buckets whose server hash has not been discovered
// yet. The registry keys such buckets by route so the first response can
// migrate them to their real hash.
const unknownHashPrefix = "unknown;"

// Bucket tracks remaining capacity and reset time for one server-assigned
// route group. The zero state (limit 0) means the server has not reported
// limits yet; such buckets admit callers without throttling.
//
// A channel-based lock serializes same-bucket requests: Acquire takes the
// lock and the caller holds it through the HTTP round trip until Release,
// applying response headers via Update in between. Holding the lock across
// the request makes bucket discovery structural: the first request to an
// unknown route is the only one in flight, and every queued caller observes
// the discovered limits when its turn comes.
type Bucket struct {
	// lock has capacity 1. Sending acquires, receiving releases. A channel
	// rather than sync.Mutex so acquisition honors context cancellation.
	lock chan struct{}

	// mu guards the state fields for snapshot readers. Writers already hold
	// the request lock; mu only makes State safe to call from outside it.
	mu        sync.Mutex
	hash      string
	key       string
	limit     int
	remaining int
	resetAt   time.Time
}

func newBucket(hash, key string) *Bucket {
	return &Bucket{
		lock: make(chan struct{}, 1),
		hash: hash,
		key:  key,
	}
}

// State is a point-in-time copy of a bucket's accounting.
type State struct {
	Hash      string
	Key       string
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// State returns a snapshot of the bucket's current accounting.
func (b *Bucket) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Hash:      b.hash,
		Key:       b.key,
		Limit:     b.limit,
		Remaining: b.remaining,
		ResetAt:   b.resetAt,
	}
}

// Acquire blocks until the caller may issue a request governed by this
// bucket, then returns with the bucket lock held. The caller must call
// Release once the response headers have been applied.
//
// If local accounting shows the window exhausted, Acquire sleeps until
// resetAt. A wait that would exceed maxWait (when maxWait > 0) fails fast
// with RateLimitedError instead of sleeping. Cancellation of ctx aborts
// both the lock wait and the window wait.
func (b *Bucket) Acquire(ctx context.Context, maxWait time.Duration) error {
	var lockTimeout <-chan time.Time
	if maxWait > 0 {
		t := time.NewTimer(maxWait)
		defer t.Stop()
		lockTimeout = t.C
	}

	select {
	case b.lock <- struct{}{}:
	case <-lockTimeout:
		return &errors.RateLimitedError{RetryAfter: maxWait, Bucket: b.Hash()}
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	known := b.limit > 0
	wait := time.Until(b.resetAt)
	exhausted := known && b.remaining <= 0 && wait > 0
	b.mu.Unlock()

	if exhausted {
		if maxWait > 0 && wait > maxWait {
			b.Release()
			return &errors.RateLimitedError{RetryAfter: wait, Bucket: b.Hash()}
		}

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			b.Release()
			return ctx.Err()
		}

		// Window rolled over. Restore local capacity optimistically; the
		// response headers overwrite this with server truth.
		b.mu.Lock()
		b.remaining = b.limit
		b.mu.Unlock()
	}

	b.mu.Lock()
	if b.remaining > 0 {
		b.remaining--
	}
	b.mu.Unlock()

	return nil
}

// Update applies server-reported limits. Server values are authoritative
// and overwrite local prediction drift. Callers normally hold the bucket
// lock (between Acquire and Release) when invoking Update.
func (b *Bucket) Update(limit, remaining int, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit > 0 {
		b.limit = limit
	}
	if remaining >= 0 {
		b.remaining = remaining
	}
	if !resetAt.IsZero() {
		b.resetAt = resetAt
	}
}

// Release returns the bucket lock. Safe to call when the lock is not held.
func (b *Bucket) Release() {
	select {
	case <-b.lock:
	default:
	}
}

// Hash returns the server-assigned bucket hash, or the unknown placeholder
// for buckets that have not seen a response yet.
func (b *Bucket) Hash() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hash
}

// Key returns the registry key (hash:majorParam) this bucket is filed under.
func (b *Bucket) Key() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key
}

// rekey moves the bucket to its discovered hash. Called by the registry
// under its own lock when a response reveals the real hash.
func (b *Bucket) rekey(hash, key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hash = hash
	b.key = key
}
