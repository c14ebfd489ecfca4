package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Rate-limit response headers.
const (
	HeaderBucket     = "X-RateLimit-Bucket"
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderResetAfter = "X-RateLimit-Reset-After"
	HeaderScope      = "X-RateLimit-Scope"
	HeaderRetryAfter = "Retry-After"
)

// HeaderState holds the rate-limit accounting parsed from one response.
type HeaderState struct {
	Hash      string
	Limit     int
	Remaining int
	ResetAt   time.Time
	Scope     string
}

// ParseHeaders extracts rate-limit state from response headers. The second
// return value is false when the response carries no bucket header, which
// means the route is unlimited for now and no update should be applied.
//
// Reset-After is preferred over the epoch Reset header because it is immune
// to clock skew between client and server.
func ParseHeaders(h http.Header) (HeaderState, bool) {
	hash := h.Get(HeaderBucket)
	if hash == "" {
		return HeaderState{}, false
	}

	state := HeaderState{
		Hash:      hash,
		Limit:     1,
		Remaining: 1,
		Scope:     h.Get(HeaderScope),
	}

	if v, err := strconv.Atoi(h.Get(HeaderLimit)); err == nil {
		state.Limit = v
	}
	if v, err := strconv.Atoi(h.Get(HeaderRemaining)); err == nil {
		state.Remaining = v
	}

	if after, err := strconv.ParseFloat(h.Get(HeaderResetAfter), 64); err == nil {
		state.ResetAt = time.Now().Add(secondsToDuration(after))
	} else if reset, err := strconv.ParseFloat(h.Get(HeaderReset), 64); err == nil {
		sec := int64(reset)
		nsec := int64((reset - float64(sec)) * float64(time.Second))
		state.ResetAt = time.Unix(sec, nsec)
	}

	return state, true
}

// tooManyRequests is the JSON body of a 429 response.
type tooManyRequests struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

// RetryInfo describes how a 429 response asked the client to back off.
type RetryInfo struct {
	RetryAfter time.Duration
	Global     bool
	Message    string
}

// ParseTooManyRequests extracts the retry directive from a 429 response.
// The JSON body's retry_after is authoritative; the Retry-After header is
// the fallback when the body is absent or malformed. The second return
// value is false when neither source yields a wait duration.
func ParseTooManyRequests(body []byte, h http.Header) (RetryInfo, bool) {
	var parsed tooManyRequests
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil && parsed.RetryAfter > 0 {
		return RetryInfo{
			RetryAfter: secondsToDuration(parsed.RetryAfter),
			Global:     parsed.Global,
			Message:    parsed.Message,
		}, true
	}

	if v, err := strconv.ParseFloat(h.Get(HeaderRetryAfter), 64); err == nil && v > 0 {
		return RetryInfo{
			RetryAfter: secondsToDuration(v),
			Global:     h.Get(HeaderScope) == "global",
			Message:    parsed.Message,
		}, true
	}

	return RetryInfo{}, false
}

// secondsToDuration converts fractional seconds to a time.Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
