package ratelimit

import (
	"log/slog"
	"sync"

	"github.com/c360/chatkit/errors"
	"github.com/c360/chatkit/metric"
	"github.com/c360/chatkit/pkg/cache"
)

// DefaultMaxBuckets bounds the bucket LRU when the caller passes 0.
const DefaultMaxBuckets = 1024

// Registry resolves route keys to rate-limit buckets.
//
// Two layers of indirection follow the server's bucketing model: a route key
// (method + path template + major parameter name) maps to a server-assigned
// opaque hash learned from X-RateLimit-Bucket, and hash:majorParam maps to
// the Bucket holding live accounting. Distinct routes may share one hash;
// the same route with different major parameter values gets distinct
// buckets.
//
// Buckets live in a bounded LRU so abandoned major parameters age out.
// Eviction only forgets accounting: the next request for an evicted key
// re-probes and rediscovers the limits.
type Registry struct {
	mu      sync.Mutex
	routes  map[string]string // route key -> server bucket hash
	buckets cache.Cache[*Bucket]
	logger  *slog.Logger
}

// NewRegistry creates a bucket registry bounded at maxBuckets live buckets.
// When metrics is non-nil the LRU exports hit/miss/eviction counters and a
// size gauge under the bucket_registry component label.
func NewRegistry(maxBuckets int, logger *slog.Logger, metrics *metric.MetricsRegistry) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBuckets <= 0 {
		maxBuckets = DefaultMaxBuckets
	}

	var opts []cache.Option[*Bucket]
	if metrics != nil {
		opts = append(opts, cache.WithMetrics[*Bucket](metrics, "bucket_registry"))
	}

	buckets, err := cache.NewLRU(maxBuckets, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "NewRegistry", "create bucket cache")
	}

	return &Registry{
		routes:  make(map[string]string),
		buckets: buckets,
		logger:  logger,
	}, nil
}

// Bucket returns the bucket governing routeKey with the given major
// parameter value, creating it when unseen. Unseen routes get a
// route-scoped placeholder hash until a response reveals the real one.
func (r *Registry) Bucket(routeKey, majorParam string) *Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash, discovered := r.routes[routeKey]
	if !discovered {
		hash = unknownHashPrefix + routeKey
	}

	key := bucketKey(hash, majorParam)
	if b, ok := r.buckets.Get(key); ok {
		return b
	}

	b := newBucket(hash, key)
	if _, err := r.buckets.Set(key, b); err != nil {
		// The caller still gets a working bucket; it is just not shared.
		r.logger.Warn("Failed to track bucket", "key", key, "error", err)
	}
	return b
}

// Update applies response header state to b and records the route's server
// hash. When the hash differs from what the route was filed under (first
// discovery, or the server re-grouped the route), the bucket migrates to
// its new key so future callers share it.
func (r *Registry) Update(routeKey, majorParam string, b *Bucket, state HeaderState) {
	r.mu.Lock()

	if state.Hash != "" && r.routes[routeKey] != state.Hash {
		prev := r.routes[routeKey]
		r.routes[routeKey] = state.Hash

		oldKey := b.Key()
		newKey := bucketKey(state.Hash, majorParam)
		if oldKey != newKey {
			_, _ = r.buckets.Delete(oldKey)
			b.rekey(state.Hash, newKey)
			// Another route may have discovered this hash first. Its bucket
			// keeps the slot and future callers share it; b only drains the
			// callers already queued on it.
			if _, ok := r.buckets.Get(newKey); !ok {
				if _, err := r.buckets.Set(newKey, b); err != nil {
					r.logger.Warn("Failed to re-file bucket", "key", newKey, "error", err)
				}
			}
		}

		if prev == "" {
			r.logger.Debug("Bucket hash discovered", "route", routeKey, "hash", state.Hash)
		} else {
			r.logger.Debug("Bucket hash migrated", "route", routeKey, "from", prev, "to", state.Hash)
		}
	}

	r.mu.Unlock()

	b.Update(state.Limit, state.Remaining, state.ResetAt)
}

// Len returns the number of live buckets.
func (r *Registry) Len() int {
	return r.buckets.Size()
}

func bucketKey(hash, majorParam string) string {
	return hash + ":" + majorParam
}
