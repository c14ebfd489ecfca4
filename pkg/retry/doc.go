// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff, designed to
// handle transient failures in network operations and long-lived connection maintenance.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//   - Config.DelayFor: Compute the delay for a given attempt, for loops that own their retry flow
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - HTTP(): 3 attempts, 1s-16s delay (REST 5xx and transport retries)
//   - Reconnect(): 1s-60s delay schedule (gateway reconnect pacing via DelayFor)
//
// # Usage Examples
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// Retry with result:
//
//	info, err := retry.DoWithResult(ctx, retry.HTTP(), func() (*gateway.BotInfo, error) {
//	    return client.FetchGatewayBot(ctx)
//	})
//
// Pacing an unbounded reconnect loop:
//
//	cfg := retry.Reconnect()
//	for attempt := 1; ; attempt++ {
//	    if err := shard.connectOnce(ctx); err == nil {
//	        attempt = 0
//	        continue
//	    }
//	    select {
//	    case <-ctx.Done():
//	        return
//	    case <-time.After(cfg.DelayFor(attempt)):
//	    }
//	}
//
// Marking an error as not worth retrying:
//
//	return retry.NonRetryable(fmt.Errorf("config rejected: %w", err))
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers (use a separate package)
//   - No metrics collection (use instrumentation at call site)
//   - No complex error classification (caller decides what to retry)
//   - Just exponential backoff with jitter
//
// # Context Cancellation
//
// All retry operations respect context cancellation and will immediately stop retrying
// when the context is cancelled, either during operation execution or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a thread-safe
// random source to avoid contention.
package retry
