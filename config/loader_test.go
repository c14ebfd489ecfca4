package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/chatkit/errors"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader()
	loader.EnableValidation(false)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.REST.Timeout)
	assert.Equal(t, 1024, cfg.RateLimit.MaxBuckets)
	assert.Equal(t, "chat.events", cfg.Bridge.SubjectPrefix)
}

func TestLoader_LoadJSONFile(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"token": "Bot.json123",
		"gateway": {"intents": 513, "shard_count": 4, "compress": true},
		"rest": {"base_url": "https://api.example.com/v10", "timeout": "45s"}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Bot.json123", cfg.Token)
	assert.Equal(t, uint64(513), cfg.Gateway.Intents)
	assert.Equal(t, 4, cfg.Gateway.ShardCount)
	assert.True(t, cfg.Gateway.Compress)
	assert.Equal(t, "https://api.example.com/v10", cfg.REST.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.REST.Timeout)

	// Unspecified fields keep defaults
	assert.Equal(t, 3, cfg.REST.MaxRetries)
	assert.Equal(t, float64(50), cfg.RateLimit.GlobalPerSecond)
}

func TestLoader_LoadYAMLFile(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
token: Bot.yaml123
gateway:
  intents: 513
  shard_count: 2
rest:
  base_url: https://api.example.com/v10
  timeout: 10s
ratelimit:
  global_per_second: 25
  max_reservation_wait: 2m
bridge:
  enabled: true
  urls:
    - nats://localhost:4222
  subject_prefix: chat.events
log:
  level: debug
`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Bot.yaml123", cfg.Token)
	assert.Equal(t, 2, cfg.Gateway.ShardCount)
	assert.Equal(t, 10*time.Second, cfg.REST.Timeout)
	assert.Equal(t, float64(25), cfg.RateLimit.GlobalPerSecond)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.MaxReservationWait)
	assert.True(t, cfg.Bridge.Enabled)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.Bridge.URLs)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Defaults preserved for untouched sections
	assert.Equal(t, 1024, cfg.Bridge.QueueSize)
	assert.Equal(t, 4, cfg.Bridge.Workers)
}

func TestLoader_LayerPrecedence(t *testing.T) {
	base := writeConfigFile(t, "base.json", `{
		"token": "Bot.base",
		"gateway": {"shard_count": 2},
		"rest": {"base_url": "https://api.example.com/v10"}
	}`)
	override := writeConfigFile(t, "override.yaml", `
gateway:
  shard_count: 8
`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)

	cfg, err := loader.Load()
	require.NoError(t, err)

	// Later layer wins for the overridden field
	assert.Equal(t, 8, cfg.Gateway.ShardCount)
	// Earlier layer survives where the later layer is silent
	assert.Equal(t, "Bot.base", cfg.Token)
	assert.Equal(t, "https://api.example.com/v10", cfg.REST.BaseURL)
}

func TestLoader_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"token": "Bot.file",
		"rest": {"base_url": "https://api.example.com/v10"}
	}`)

	t.Setenv("CHATKIT_TOKEN", "Bot.env")
	t.Setenv("CHATKIT_GATEWAY_SHARD_COUNT", "16")
	t.Setenv("CHATKIT_LOG_LEVEL", "debug")

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Bot.env", cfg.Token, "environment should override file")
	assert.Equal(t, 16, cfg.Gateway.ShardCount)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_EnvIgnoresUnparseableNumbers(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"token": "Bot.file",
		"gateway": {"shard_count": 4},
		"rest": {"base_url": "https://api.example.com/v10"}
	}`)

	t.Setenv("CHATKIT_GATEWAY_SHARD_COUNT", "not-a-number")

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Gateway.ShardCount, "unparseable override should be ignored")
}

func TestLoader_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
		"rest": {"base_url": "https://api.example.com/v10"}
	}`)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingToken)
}

func TestLoader_ValidationDisabled(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{}`)

	loader := NewLoader()
	loader.EnableValidation(false)

	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Token)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoader_UnsupportedExtension(t *testing.T) {
	path := writeConfigFile(t, "config.toml", `token = "x"`)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config files allowed")
}

func TestLoader_MalformedJSON(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{"token": `)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
}

func TestConfig_SaveToFileRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"json", "saved.json"},
		{"yaml", "saved.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := Default()
			original.Token = "Bot.roundtrip"
			original.REST.BaseURL = "https://api.example.com/v10"
			original.Gateway.ShardCount = 3

			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, original.SaveToFile(path))

			loaded, err := NewLoader().LoadFile(path)
			require.NoError(t, err)

			assert.Equal(t, original.Token, loaded.Token)
			assert.Equal(t, original.Gateway.ShardCount, loaded.Gateway.ShardCount)
			assert.Equal(t, original.REST.Timeout, loaded.REST.Timeout)
			assert.Equal(t, original.RateLimit.MaxReservationWait, loaded.RateLimit.MaxReservationWait)
		})
	}
}

func TestConfig_SaveToFileUnsupportedExtension(t *testing.T) {
	cfg := Default()
	err := cfg.SaveToFile(filepath.Join(t.TempDir(), "config.ini"))
	require.Error(t, err)
}
