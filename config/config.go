package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/c360/chatkit/errors"
)

const redactedToken = "[REDACTED]"

// Config represents the complete application configuration
type Config struct {
	Token     string          `json:"token,omitempty"` // opaque credential, env CHATKIT_TOKEN overrides
	Gateway   GatewayConfig   `json:"gateway"`
	REST      RESTConfig      `json:"rest"`
	RateLimit RateLimitConfig `json:"ratelimit"`
	Bridge    BridgeConfig    `json:"bridge"`
	Metrics   MetricsConfig   `json:"metrics"`
	Log       LogConfig       `json:"log"`
}

// GatewayConfig defines shard connection settings
type GatewayConfig struct {
	URL        string `json:"url,omitempty"`         // empty = discover via Get Gateway Bot
	Intents    uint64 `json:"intents,omitempty"`     // event subscription bitmask
	ShardCount int    `json:"shard_count,omitempty"` // 0 = auto-shard from Get Gateway Bot
	Compress   bool   `json:"compress,omitempty"`    // request zlib payload compression
}

// RESTConfig defines REST client settings
type RESTConfig struct {
	BaseURL    string        `json:"base_url"`
	Timeout    time.Duration `json:"timeout,omitempty"`     // per-attempt timeout
	MaxRetries int           `json:"max_retries,omitempty"` // total attempts for 5xx/transport failures
}

// RateLimitConfig defines rate-limit engine settings
type RateLimitConfig struct {
	GlobalPerSecond    float64       `json:"global_per_second,omitempty"`
	MaxBuckets         int           `json:"max_buckets,omitempty"` // LRU capacity of the bucket table
	MaxReservationWait time.Duration `json:"max_reservation_wait,omitempty"`
}

// BridgeConfig defines event bridge (NATS) settings
type BridgeConfig struct {
	Enabled       bool     `json:"enabled"`
	URLs          []string `json:"urls,omitempty"`
	SubjectPrefix string   `json:"subject_prefix,omitempty"`
	QueueSize     int      `json:"queue_size,omitempty"`
	Workers       int      `json:"workers,omitempty"`
}

// MetricsConfig defines metrics server settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LogConfig defines logging settings
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // text, json
}

// Default returns the default configuration. The token and REST base URL have
// no defaults and must come from a file or the environment.
func Default() *Config {
	return &Config{
		REST: RESTConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		RateLimit: RateLimitConfig{
			GlobalPerSecond:    50,
			MaxBuckets:         1024,
			MaxReservationWait: 5 * time.Minute,
		},
		Bridge: BridgeConfig{
			Enabled:       false,
			URLs:          []string{"nats://localhost:4222"},
			SubjectPrefix: "chat.events",
			QueueSize:     1024,
			Workers:       4,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required: %w", errors.ErrMissingToken)
	}
	if strings.ContainsAny(c.Token, " \t\r\n") {
		return fmt.Errorf("token contains whitespace: %w", errors.ErrInvalidConfig)
	}

	if c.Gateway.URL != "" &&
		!strings.HasPrefix(c.Gateway.URL, "ws://") && !strings.HasPrefix(c.Gateway.URL, "wss://") {
		return fmt.Errorf("gateway.url must be a ws:// or wss:// URL: %w", errors.ErrInvalidConfig)
	}
	if c.Gateway.ShardCount < 0 {
		return fmt.Errorf("gateway.shard_count cannot be negative: %w", errors.ErrInvalidConfig)
	}

	if c.REST.BaseURL == "" {
		return fmt.Errorf("rest.base_url is required: %w", errors.ErrMissingConfig)
	}
	if !strings.HasPrefix(c.REST.BaseURL, "http://") && !strings.HasPrefix(c.REST.BaseURL, "https://") {
		return fmt.Errorf("rest.base_url must be an http:// or https:// URL: %w", errors.ErrInvalidConfig)
	}
	if c.REST.Timeout <= 0 {
		return fmt.Errorf("rest.timeout must be positive: %w", errors.ErrInvalidConfig)
	}
	if c.REST.MaxRetries < 1 {
		return fmt.Errorf("rest.max_retries must be at least 1: %w", errors.ErrInvalidConfig)
	}

	if c.RateLimit.GlobalPerSecond <= 0 {
		return fmt.Errorf("ratelimit.global_per_second must be positive: %w", errors.ErrInvalidConfig)
	}
	if c.RateLimit.MaxBuckets <= 0 {
		return fmt.Errorf("ratelimit.max_buckets must be positive: %w", errors.ErrInvalidConfig)
	}
	if c.RateLimit.MaxReservationWait <= 0 {
		return fmt.Errorf("ratelimit.max_reservation_wait must be positive: %w", errors.ErrInvalidConfig)
	}

	if c.Bridge.Enabled {
		if len(c.Bridge.URLs) == 0 {
			return fmt.Errorf("bridge.urls is required when the bridge is enabled: %w", errors.ErrMissingConfig)
		}
		if !isValidSubjectPrefix(c.Bridge.SubjectPrefix) {
			return fmt.Errorf(
				"bridge.subject_prefix %q is not a valid subject prefix (alphanumeric with dots, dashes, underscores): %w",
				c.Bridge.SubjectPrefix, errors.ErrInvalidConfig,
			)
		}
		if c.Bridge.QueueSize <= 0 {
			return fmt.Errorf("bridge.queue_size must be positive: %w", errors.ErrInvalidConfig)
		}
		if c.Bridge.Workers <= 0 {
			return fmt.Errorf("bridge.workers must be positive: %w", errors.ErrInvalidConfig)
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be in 1..65535: %w", errors.ErrInvalidConfig)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with /: %w", errors.ErrInvalidConfig)
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error: %w",
			c.Log.Level, errors.ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json: %w",
			c.Log.Format, errors.ErrInvalidConfig)
	}

	return nil
}

// isValidSubjectPrefix checks if a string is valid for use as a broker subject
// prefix. Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidSubjectPrefix(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	// Use JSON marshaling/unmarshaling for deep copy
	data, err := json.Marshal(c)
	if err != nil {
		// Fallback to shallow copy if marshaling fails
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// String returns a JSON representation of the config with the token redacted
func (c *Config) String() string {
	clone := c.Clone()
	if clone.Token != "" {
		clone.Token = redactedToken
	}
	data, _ := json.MarshalIndent(clone, "", "  ")
	return string(data)
}

// parseDurationValue converts a JSON duration value. Durations may appear as
// Go duration strings ("30s", "5m") or as numeric nanoseconds.
func parseDurationValue(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(t)
	case float64:
		return time.Duration(t), nil
	default:
		return 0, fmt.Errorf("unsupported duration value of type %T", v)
	}
}

// UnmarshalJSON implements custom JSON unmarshaling for RESTConfig so that
// timeout accepts duration strings
func (r *RESTConfig) UnmarshalJSON(data []byte) error {
	type Alias RESTConfig
	aux := &struct {
		Timeout any `json:"timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := parseDurationValue(aux.Timeout)
	if err != nil {
		return fmt.Errorf("rest.timeout: %w", err)
	}
	if aux.Timeout != nil {
		r.Timeout = d
	}

	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for RateLimitConfig so that
// max_reservation_wait accepts duration strings
func (r *RateLimitConfig) UnmarshalJSON(data []byte) error {
	type Alias RateLimitConfig
	aux := &struct {
		MaxReservationWait any `json:"max_reservation_wait,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d, err := parseDurationValue(aux.MaxReservationWait)
	if err != nil {
		return fmt.Errorf("ratelimit.max_reservation_wait: %w", err)
	}
	if aux.MaxReservationWait != nil {
		r.MaxReservationWait = d
	}

	return nil
}
