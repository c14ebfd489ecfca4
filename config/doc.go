// Package config provides configuration management for chatkit applications.
//
// This package handles loading, validation, and persistence of application
// configuration from JSON and YAML files with environment variable overrides.
//
// # Core Components
//
// Config: Main configuration structure containing the bot token, gateway
// connection settings, REST client tuning, rate limiter sizing, event bridge
// publishing, and observability options.
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable substitution for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.yaml")
//	loader.AddLayer("config/production.yaml") // Overrides base
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A single file can be loaded directly:
//
//	cfg, err := config.NewLoader().LoadFile("chatkit.json")
//
// # Environment Variable Overrides
//
// Configuration values can be overridden using environment variables, which
// take precedence over all file layers:
//
//	# Override the bot token (preferred over storing it in files)
//	export CHATKIT_TOKEN="Bot.abc123"
//
//	# Override shard count and gateway intents
//	export CHATKIT_GATEWAY_SHARD_COUNT="16"
//	export CHATKIT_GATEWAY_INTENTS="513"
//
//	# Override bridge URLs (comma-separated)
//	export CHATKIT_BRIDGE_URLS="nats://server1:4222,nats://server2:4222"
//
// # Layer Merging
//
// Configuration layers are merged with last-wins semantics:
//
//	base.json:
//	  {"gateway": {"shard_count": 2, "compress": true}}
//
//	production.json:
//	  {"gateway": {"shard_count": 16}}
//
//	Result:
//	  {"gateway": {"shard_count": 16, "compress": true}}
//
// # Durations
//
// Duration fields accept Go duration strings ("30s", "2m") or integer
// nanoseconds in both JSON and YAML files:
//
//	rest:
//	  timeout: 45s
//	ratelimit:
//	  max_reservation_wait: 5m
//
// # Validation
//
// Load validates the merged result by default. Validation failures wrap the
// package sentinels (errors.ErrMissingToken, errors.ErrInvalidConfig,
// errors.ErrMissingConfig) and classify as fatal, so callers can exit rather
// than retry on a bad config. Validation can be disabled for tooling that
// inspects partial configs:
//
//	loader.EnableValidation(false)
//
// # Security
//
// The package includes security validation:
//   - File size limits (10MB max) to prevent memory exhaustion
//   - JSON depth validation (100 levels max) to prevent DoS attacks
//   - Path validation to prevent directory traversal
//   - Regular file checks (no symlinks or device files)
//   - Config.String() redacts the token for safe logging
package config
