// Package ratelimit implements client-side enforcement of the server's
// per-route and global REST rate limits.
//
// The server groups routes into rate-limit buckets identified by opaque
// hashes it reports in the X-RateLimit-Bucket response header. The client
// cannot know the grouping up front: it discovers hashes from responses and
// must keep requests for an undiscovered group from racing past the first
// probe.
//
// # Buckets
//
// Bucket tracks {limit, remaining, resetAt} for one hash + major-parameter
// pair. A channel-based lock serializes same-bucket requests end to end:
//
//	b := registry.Bucket(routeKey, channelID)
//	if err := b.Acquire(ctx, maxWait); err != nil {
//		return err // rate limited or cancelled
//	}
//	defer b.Release()
//
//	resp := doRequest()
//	if state, ok := ratelimit.ParseHeaders(resp.Header); ok {
//		registry.Update(routeKey, channelID, b, state)
//	}
//
// Acquire consumes one slot of local accounting, sleeping until resetAt when
// the window is exhausted. Local prediction only ever errs toward caution:
// remaining never drops below zero, and every response's headers overwrite
// the local state with server truth.
//
// # Discovery
//
// Registry maps route keys (method + path template + major parameter) to
// server hashes, and hash:majorParam pairs to live buckets. An unseen route
// gets a placeholder bucket keyed by route; because the bucket lock spans
// the whole request, exactly one probe is in flight for it, and the probe's
// response headers migrate the bucket to its real hash before the next
// caller proceeds. Distinct routes that report the same hash share one
// bucket; the same route with distinct major parameters (different
// channels, guilds, webhooks) gets independent buckets.
//
// Buckets live in a bounded LRU (pkg/cache). Evicting an idle bucket only
// forgets accounting: the next request for that key re-probes.
//
// # Global quota
//
// GlobalGate enforces the platform-wide request rate (default 50/s) with a
// golang.org/x/time/rate token bucket plus a hard block window set when the
// server answers a global 429:
//
//	gate := ratelimit.NewGlobalGate(50, 50)
//	if err := gate.Wait(ctx); err != nil { ... }
//	// on a global 429:
//	gate.Throttle(info.RetryAfter)
//
// # Bounded waits
//
// Acquire's maxWait caps how long a caller may be parked, both on the lock
// and on a window reset. A wait that would exceed it fails fast with
// errors.RateLimitedError carrying the observed retry-after, so callers
// never sleep unboundedly on a pathological reset timestamp.
package ratelimit
