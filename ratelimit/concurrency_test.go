package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// windowedServer simulates a server enforcing limit takes per fixed window,
// answering each take with the header state a real response would carry.
type windowedServer struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	resetAt   time.Time
	remaining int
	overflows int
}

func newWindowedServer(limit int, window time.Duration) *windowedServer {
	return &windowedServer{
		limit:     limit,
		window:    window,
		remaining: limit,
		resetAt:   time.Now().Add(window),
	}
}

func (s *windowedServer) take() HeaderState {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !now.Before(s.resetAt) {
		s.remaining = s.limit
		s.resetAt = now.Add(s.window)
	}

	s.remaining--
	if s.remaining < 0 {
		s.overflows++
		s.remaining = 0
	}

	return HeaderState{
		Hash:      "windowed",
		Limit:     s.limit,
		Remaining: s.remaining,
		ResetAt:   s.resetAt,
	}
}

func (s *windowedServer) overflowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overflows
}

func TestBucket_PermitsNeverExceedWindowLimit(t *testing.T) {
	const (
		callers = 12
		limit   = 3
	)
	window := 120 * time.Millisecond

	server := newWindowedServer(limit, window)
	r := newTestRegistry(t, 16)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Fuzzed arrival timing.
			time.Sleep(time.Duration(rand.Intn(30)) * time.Millisecond)

			b := r.Bucket(routeGetChannel, "123")
			if err := b.Acquire(context.Background(), 0); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			state := server.take()
			r.Update(routeGetChannel, "123", b, state)
			b.Release()
		}()
	}
	wg.Wait()

	assert.Zero(t, server.overflowCount(), "server observed more takes than the window allows")
}

func TestBucket_ZeroRemainingBlocksAllUntilReset(t *testing.T) {
	b := newBucket("abc", "abc:123")
	resetAt := time.Now().Add(80 * time.Millisecond)
	b.Update(5, 0, resetAt)

	const callers = 5
	completed := make(chan time.Time, callers)
	for i := 0; i < callers; i++ {
		go func() {
			if err := b.Acquire(context.Background(), 0); err != nil {
				t.Errorf("acquire failed: %v", err)
				completed <- time.Time{}
				return
			}
			completed <- time.Now()
			b.Release()
		}()
	}

	earliest := resetAt.Add(-10 * time.Millisecond)
	for i := 0; i < callers; i++ {
		select {
		case at := <-completed:
			if !at.IsZero() && at.Before(earliest) {
				t.Errorf("caller completed %s before the window reset", earliest.Sub(at))
			}
		case <-time.After(2 * time.Second):
			t.Fatal("caller never completed")
		}
	}
}

func TestRegistry_UnknownKeyProbeSerialization(t *testing.T) {
	r := newTestRegistry(t, 16)

	var inFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			b := r.Bucket(routeCreateMessage, "7")
			if err := b.Acquire(context.Background(), 0); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			if n := inFlight.Add(1); n != 1 {
				t.Errorf("%d probes in flight for one undiscovered key", n)
			}
			time.Sleep(5 * time.Millisecond)

			r.Update(routeCreateMessage, "7", b, HeaderState{
				Hash:      "probe-hash",
				Limit:     100,
				Remaining: 99,
				ResetAt:   time.Now().Add(time.Minute),
			})
			inFlight.Add(-1)
			b.Release()
		}()
	}
	wg.Wait()

	// Discovery resolved every caller to the same bucket.
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "probe-hash", r.Bucket(routeCreateMessage, "7").Hash())
}
