// Package cache provides a high-performance, thread-safe LRU cache with
// built-in statistics tracking and optional Prometheus metrics integration.
//
// # Overview
//
// The cache is generic over its value type, evicts least recently used
// entries when the maximum capacity is reached, and provides observability
// through always-on statistics and optional metrics export.
//
// # Quick Start
//
// LRU cache with capacity limit:
//
//	c, err := cache.NewLRU[*Bucket](1024)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	c.Set("hash:major", bucket)
//	bucket, ok := c.Get("hash:major")
//
// With metrics export and an eviction callback:
//
//	c, err := cache.NewLRU[*Bucket](1024,
//		cache.WithMetrics[*Bucket](registry, "bucket_registry"),
//		cache.WithEvictionCallback[*Bucket](func(key string, b *Bucket) {
//			logger.Debug("bucket evicted", "key", key)
//		}),
//	)
//
// Disabled cache (always misses):
//
//	c := cache.NewNoop[*Bucket]()
//
// # Statistics
//
// Every cache tracks hits, misses, sets, deletes, evictions, and size.
// Statistics are always enabled; retrieve them with Stats():
//
//	stats := c.Stats()
//	fmt.Printf("hit ratio: %.2f\n", stats.HitRatio())
//
// Summary() returns a JSON-serializable snapshot of all counters for
// health endpoints and diagnostics.
//
// # Prometheus Metrics
//
// WithMetrics() additionally exports statistics as Prometheus metrics
// under the chatkit_cache_* namespace with a component label:
//
//	chatkit_cache_hits_total{component="bucket_registry"}
//	chatkit_cache_misses_total{component="bucket_registry"}
//	chatkit_cache_evictions_total{component="bucket_registry"}
//	chatkit_cache_size{component="bucket_registry"}
//
// # Eviction Callbacks
//
// WithEvictionCallback() registers a function invoked whenever an entry
// leaves the cache through LRU eviction, Delete, or Clear. Callbacks run
// outside the cache lock, so they may safely call back into the cache.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Get marks entries as
// recently used, so read-heavy workloads still maintain accurate LRU
// ordering.
package cache
