// Package errors provides standardized error handling patterns for ChatKit components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// long-lived connection management: Transient (temporary, retryable), Invalid
// (bad input, non-retryable), and Fatal (unrecoverable, stop processing).
//
// This classification lets the gateway and REST engines make retry and
// shutdown decisions without hardcoded error string matching. A shard
// supervisor restarts on Transient, surfaces Invalid to the caller, and
// stops permanently on Fatal.
//
// # Error Classification
//
// Errors are classified based on their type:
//
//   - Transient: Network failures, 5xx responses, rate limits, suspension timeouts (retry recommended)
//   - Invalid: 4xx responses, validation failures, bad request payloads (do not retry)
//   - Fatal: Non-recoverable gateway closures, bad credentials, invalid configuration (stop processing)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Typed Failure Kinds
//
// The REST and gateway engines surface failures through typed errors rather
// than opaque strings, so callers can branch on the structure:
//
//	resp, err := client.Do(ctx, route, nil)
//	if err != nil {
//	    var rle *errors.RateLimitedError
//	    if errors.As(err, &rle) {
//	        log.Printf("rate limited, retry after %s (global=%v)", rle.RetryAfter, rle.Global)
//	    }
//	    var ce *errors.ClientError
//	    if errors.As(err, &ce) {
//	        log.Printf("rejected: %d %s", ce.Status, ce.Message)
//	    }
//	}
//
// The six kinds and their classes:
//
//   - ClientError: 4xx response other than 429 (Invalid)
//   - RateLimitedError: 429 that survived the single automatic retry (Transient)
//   - ServerError: 5xx or transport failure after bounded retries (Transient)
//   - ProtocolViolationError: malformed gateway frame (Transient)
//   - FatalShardError: non-recoverable gateway close code (Fatal)
//   - TimeoutError: suspension point exceeded its bound (Transient)
//
// Each kind also has a predicate (IsClientError, IsRateLimited, ...) that
// walks the wrap chain via errors.As.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Shard", "connect", "dial gateway")   // For retryable errors
//	errors.WrapInvalid(err, "Registry", "Resolve", "parse route")   // For validation errors
//	errors.WrapFatal(err, "Manager", "Start", "fetch gateway info") // For unrecoverable errors
//
// The generic Wrap() preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Standard Error Variables
//
// Pre-defined error variables cover common conditions:
//
//   - Lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrShuttingDown
//   - Connection: ErrNoConnection, ErrConnectionLost
//   - Configuration: ErrInvalidConfig, ErrMissingConfig, ErrMissingToken
//   - Data: ErrInvalidData
//   - Session: ErrSessionInvalid, ErrShardNotFound
//
// Use these variables instead of creating custom error messages:
//
//	// Good - uses standard variable
//	if s.started {
//	    return errors.ErrAlreadyStarted
//	}
//
// # Integration with errors.As/Is
//
// Classification is preserved through wrap chains:
//
//	wrapped := errors.WrapTransient(io.ErrUnexpectedEOF, "Shard", "readLoop", "read frame")
//	errors.IsTransient(wrapped) // true
//
//	var fe *errors.FatalShardError
//	errors.As(fmt.Errorf("shard stopped: %w", &errors.FatalShardError{Code: 4004}), &fe) // true
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
//
// # Architecture Integration
//
// The errors package integrates with the other ChatKit packages:
//
//   - rest: the executor returns ClientError/RateLimitedError/ServerError from Do
//   - gateway: shards return FatalShardError from fatal closures; the manager
//     uses Classify to decide between restart and stop
//   - ratelimit: reservation waits surface TimeoutError and RateLimitedError
//   - pkg/retry: retry.Do consults IsTransient/NonRetryable for retry decisions
package errors
