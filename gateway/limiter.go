package gateway

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// identifyWindow is the rolling window within which each identify key may
// send one IDENTIFY.
const identifyWindow = 5 * time.Second

// IdentifyGate grants identify slots. A shard must not send IDENTIFY until
// Wait returns.
type IdentifyGate interface {
	Wait(ctx context.Context, shardID int) error
}

// IdentifyLimiter enforces the identify-concurrency window. Shards are
// partitioned into maxConcurrency keys by shard_id % max_concurrency;
// each key admits one IDENTIFY per rolling window, so shards on distinct
// keys identify concurrently while shards sharing a key queue.
type IdentifyLimiter struct {
	limiters []*rate.Limiter
}

// NewIdentifyLimiter creates a gate for the given max_concurrency.
func NewIdentifyLimiter(maxConcurrency int) *IdentifyLimiter {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	limiters := make([]*rate.Limiter, maxConcurrency)
	for i := range limiters {
		limiters[i] = rate.NewLimiter(rate.Every(identifyWindow), 1)
	}
	return &IdentifyLimiter{limiters: limiters}
}

// Wait blocks until the shard's identify key has a slot or ctx is done.
func (l *IdentifyLimiter) Wait(ctx context.Context, shardID int) error {
	if shardID < 0 {
		shardID = -shardID
	}
	return l.limiters[shardID%len(l.limiters)].Wait(ctx)
}
