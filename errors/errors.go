// Package errors provides standardized error handling for ChatKit. It
// includes error classification, standard error variables, the typed
// failure kinds surfaced by the REST and gateway engines, and helper
// functions for consistent error wrapping across the system.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")
	ErrShuttingDown   = errors.New("shutting down")

	// Connection errors
	ErrNoConnection   = errors.New("no connection available")
	ErrConnectionLost = errors.New("connection lost")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
	ErrMissingToken  = errors.New("missing credential token")

	// Data errors
	ErrInvalidData = errors.New("invalid data")

	// Session errors
	ErrSessionInvalid = errors.New("session invalidated")
	ErrShardNotFound  = errors.New("shard not found")
)

// ClientError reports a 4xx response other than 429. It is never retried;
// the server's error payload is carried verbatim for the caller.
type ClientError struct {
	Status  int    // HTTP status code
	Code    int    // platform-specific error code, 0 when absent
	Message string // platform-provided message, may be empty
	Body    []byte // raw response body
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("client error: status %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("client error: status %d", e.Status)
}

// RateLimitedError reports a 429 that survived the single permitted
// automatic retry, or a reservation wait that exceeded the configured
// maximum. RetryAfter is the duration the server actually demanded.
type RateLimitedError struct {
	RetryAfter time.Duration
	Global     bool   // true when the platform-wide quota was breached
	Bucket     string // server bucket hash when known
}

// Error implements the error interface
func (e *RateLimitedError) Error() string {
	scope := "route"
	if e.Global {
		scope = "global"
	}
	return fmt.Sprintf("rate limited (%s): retry after %s", scope, e.RetryAfter)
}

// ServerError reports a 5xx response or a transport-level failure that
// persisted through the bounded retry policy. Status is 0 for pure
// transport failures.
type ServerError struct {
	Status   int
	Attempts int
	Err      error // underlying transport error, nil for HTTP statuses
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server error after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("server error after %d attempts: status %d", e.Attempts, e.Status)
}

// Unwrap returns the underlying transport error, if any
func (e *ServerError) Unwrap() error { return e.Err }

// ProtocolViolationError reports a malformed or unexpected gateway frame.
// The shard that observed it tears its connection down and reconnects.
type ProtocolViolationError struct {
	ShardID int
	Reason  string
	Err     error
}

// Error implements the error interface
func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("shard %d protocol violation: %s", e.ShardID, e.Reason)
}

// Unwrap returns the underlying decode error, if any
func (e *ProtocolViolationError) Unwrap() error { return e.Err }

// FatalShardError reports a non-recoverable gateway closure. The shard
// stops and is not restarted automatically.
type FatalShardError struct {
	ShardID int
	Code    int // gateway close code
	Reason  string
}

// Error implements the error interface
func (e *FatalShardError) Error() string {
	return fmt.Sprintf("shard %d fatal closure: code %d: %s", e.ShardID, e.Code, e.Reason)
}

// TimeoutError reports a suspension point exceeding its bound. Op names
// the suspension point ("await_hello", "heartbeat_ack", "reservation",
// "close_grace", ...) so callers and logs can distinguish them.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s exceeded %s", e.Op, e.Timeout)
}

// NewTimeout creates a TimeoutError for the named suspension point
func NewTimeout(op string, bound time.Duration) *TimeoutError {
	return &TimeoutError{Op: op, Timeout: bound}
}

// IsClientError reports whether err carries a ClientError
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsRateLimited reports whether err carries a RateLimitedError
func IsRateLimited(err error) bool {
	var re *RateLimitedError
	return errors.As(err, &re)
}

// IsServerError reports whether err carries a ServerError
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsProtocolViolation reports whether err carries a ProtocolViolationError
func IsProtocolViolation(err error) bool {
	var pe *ProtocolViolationError
	return errors.As(err, &pe)
}

// IsFatalShard reports whether err carries a FatalShardError
func IsFatalShard(err error) bool {
	var fe *FatalShardError
	return errors.As(err, &fe)
}

// IsTimeout reports whether err carries a TimeoutError
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	// Typed domain errors carry their own disposition
	switch {
	case IsFatalShard(err):
		return false
	case IsClientError(err):
		return false
	case IsServerError(err), IsRateLimited(err), IsTimeout(err), IsProtocolViolation(err):
		return true
	}

	if errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, ErrNoConnection) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	if IsFatalShard(err) {
		return true
	}

	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrMissingToken)
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return IsClientError(err) || errors.Is(err, ErrInvalidData)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient // Default for nil
	}

	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	if IsTransient(err) {
		return ErrorTransient
	}

	// Default to transient for unknown errors to allow retry
	return ErrorTransient
}

// newClassified creates a new classified error
// This is an internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}
