package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/c360/chatkit/errors"
	"github.com/c360/chatkit/metric"
	"github.com/c360/chatkit/pkg/retry"
	"github.com/c360/chatkit/ratelimit"
)

const (
	// DefaultTimeout bounds each HTTP attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the total attempt budget for 5xx and transport
	// failures.
	DefaultMaxRetries = 3

	// DefaultMaxReservationWait caps how long a request may be parked on
	// rate-limit accounting before failing fast.
	DefaultMaxReservationWait = 5 * time.Minute

	defaultUserAgent = "chatkit (https://github.com/c360/chatkit, v1)"

	// maxResponseBytes bounds response reads so a misbehaving intermediary
	// cannot stream an unbounded payload.
	maxResponseBytes = 8 << 20
)

// Client executes REST requests with rate-limit accounting, bounded
// retries, and response classification.
//
// Every request flows: resolve bucket -> reserve (cancellable) -> global
// gate -> HTTP attempt with per-attempt timeout -> apply response headers
// to the bucket -> classify. The bucket stays locked until the headers are
// applied, so same-bucket requests serialize and hash discovery never
// races.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenProvider
	registry   *ratelimit.Registry
	gate       *ratelimit.GlobalGate
	logger     *slog.Logger
	metrics    *metric.Metrics
	backoff    retry.Config
	timeout    time.Duration
	maxRetries int
	maxWait    time.Duration
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. The per-attempt timeout still
// applies through request contexts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables request, rate-limit and duration metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBucketRegistry shares an externally built bucket registry.
func WithBucketRegistry(r *ratelimit.Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithGlobalGate shares an externally built global gate.
func WithGlobalGate(g *ratelimit.GlobalGate) Option {
	return func(c *Client) {
		if g != nil {
			c.gate = g
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the total attempt budget for retryable failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithMaxReservationWait caps rate-limit waits before failing fast.
func WithMaxReservationWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// WithBackoff overrides the retry delay schedule for 5xx and transport
// failures.
func WithBackoff(cfg retry.Config) Option {
	return func(c *Client) { c.backoff = cfg }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a REST client for the given API base URL. The token
// provider may be nil for endpoints that need no authorization.
func NewClient(baseURL string, token TokenProvider, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "base URL required")
	}

	c := &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		token:      token,
		logger:     slog.Default(),
		backoff:    retry.HTTP(),
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		maxWait:    DefaultMaxReservationWait,
		userAgent:  defaultUserAgent,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.registry == nil {
		registry, err := ratelimit.NewRegistry(ratelimit.DefaultMaxBuckets, c.logger, nil)
		if err != nil {
			return nil, err
		}
		c.registry = registry
	}
	if c.gate == nil {
		c.gate = ratelimit.NewGlobalGate(ratelimit.DefaultGlobalPerSecond, ratelimit.DefaultGlobalBurst)
	}

	return c, nil
}

// Registry returns the bucket registry backing this client.
func (c *Client) Registry() *ratelimit.Registry {
	return c.registry
}

// Do executes the compiled route and returns the response payload bytes.
// A non-nil body is JSON-encoded. Outcomes:
//
//   - 2xx: payload returned.
//   - 429: the server's retry_after is waited once and the request retried;
//     a second 429 (or one exceeding the reservation-wait cap) surfaces
//     errors.RateLimitedError.
//   - 500/502/503/504 and transport errors: retried on an exponential
//     schedule up to the attempt budget, then errors.ServerError.
//   - other 4xx: errors.ClientError carrying the server's error payload.
func (c *Client) Do(ctx context.Context, route *CompiledRoute, body any) ([]byte, error) {
	if route == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Client", "Do", "nil route")
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "Do", "encode request body")
		}
	}

	traceID := uuid.NewString()
	bucket := c.registry.Bucket(route.RouteKey(), route.MajorParam())

	waitStart := time.Now()
	if err := bucket.Acquire(ctx, c.maxWait); err != nil {
		return nil, err
	}
	defer bucket.Release()

	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}
	if wait := time.Since(waitStart); wait > time.Millisecond && c.metrics != nil {
		c.metrics.RecordRateLimitWait(wait)
	}

	attempt := 1
	retried429 := false

	for {
		status, header, respBody, err := c.attempt(ctx, route, payload, traceID, attempt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.IsInvalid(err) || errors.IsFatal(err) {
				return nil, err
			}
			if attempt >= c.maxRetries {
				return nil, &errors.ServerError{Attempts: attempt, Err: err}
			}
			delay := c.backoff.DelayFor(attempt)
			c.logger.Warn("Transport error, backing off",
				"trace_id", traceID, "attempt", attempt, "delay", delay, "error", err)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		// Server truth reconciles local accounting on every outcome.
		if state, ok := ratelimit.ParseHeaders(header); ok {
			c.registry.Update(route.RouteKey(), route.MajorParam(), bucket, state)
		}

		switch {
		case status >= 200 && status < 300:
			return respBody, nil

		case status == http.StatusTooManyRequests:
			wait, err := c.handle429(route, header, respBody, traceID, retried429)
			if err != nil {
				return nil, err
			}
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			retried429 = true
			continue

		case isRetryableStatus(status):
			if attempt >= c.maxRetries {
				return nil, &errors.ServerError{Status: status, Attempts: attempt}
			}
			delay := c.backoff.DelayFor(attempt)
			c.logger.Warn("Server error, backing off",
				"trace_id", traceID, "status", status, "attempt", attempt, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			attempt++
			continue

		default:
			return nil, clientErrorFrom(status, respBody)
		}
	}
}

// DoJSON executes the route and decodes the JSON response into out. A nil
// out discards the payload.
func (c *Client) DoJSON(ctx context.Context, route *CompiledRoute, body, out any) error {
	data, err := c.Do(ctx, route, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapInvalid(err, "Client", "DoJSON", "decode response")
	}
	return nil
}

// attempt performs one HTTP round trip under the per-attempt timeout.
func (c *Client) attempt(
	ctx context.Context, route *CompiledRoute, payload []byte, traceID string, attempt int,
) (int, http.Header, []byte, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, route.Method(), route.URL(c.baseURL), bodyReader)
	if err != nil {
		return 0, nil, nil, errors.WrapInvalid(err, "Client", "Do", "build request")
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		auth, err := c.token.AuthHeader(ctx)
		if err != nil {
			return 0, nil, nil, errors.WrapFatal(err, "Client", "Do", "acquire credential")
		}
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordRESTRequest(route.Method(), resp.StatusCode, duration)
	}
	c.logger.Debug("REST request",
		"trace_id", traceID, "method", route.Method(), "path", route.Path(),
		"status", resp.StatusCode, "attempt", attempt, "duration", duration)

	return resp.StatusCode, resp.Header, respBody, nil
}

// handle429 decides whether a 429 gets its single forced retry. It returns
// the wait before that retry, or an error when the limit must surface.
func (c *Client) handle429(
	route *CompiledRoute, header http.Header, body []byte, traceID string, alreadyRetried bool,
) (time.Duration, error) {
	hash := header.Get(ratelimit.HeaderBucket)

	info, ok := ratelimit.ParseTooManyRequests(body, header)
	if !ok {
		// No retry directive at all. Surfacing beats guessing a wait.
		return 0, &errors.RateLimitedError{Bucket: hash}
	}

	scope := "route"
	if info.Global {
		scope = "global"
		c.gate.Throttle(info.RetryAfter)
	}
	if c.metrics != nil {
		c.metrics.RecordRateLimited(scope)
	}
	c.logger.Warn("Rate limited",
		"trace_id", traceID, "scope", scope, "route", route.RouteKey(), "retry_after", info.RetryAfter)

	if c.maxWait > 0 && info.RetryAfter > c.maxWait {
		return 0, &errors.RateLimitedError{RetryAfter: info.RetryAfter, Global: info.Global, Bucket: hash}
	}
	if alreadyRetried {
		return 0, &errors.RateLimitedError{RetryAfter: info.RetryAfter, Global: info.Global, Bucket: hash}
	}

	return info.RetryAfter, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// apiError is the server's error payload on non-2xx responses.
type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func clientErrorFrom(status int, body []byte) error {
	var payload apiError
	_ = json.Unmarshal(body, &payload)
	return &errors.ClientError{
		Status:  status,
		Code:    payload.Code,
		Message: payload.Message,
		Body:    body,
	}
}
