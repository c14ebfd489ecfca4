package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with layers and overrides.
// Layers are merged in order (later layers win), then CHATKIT_* environment
// variables override individual fields.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader with validation enabled
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "CHATKIT",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Load each layer and merge using map-based approach
	for _, path := range l.layers {
		rawConfig, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	// Apply environment overrides
	l.applyEnvOverrides(cfg)

	// Validate if enabled
	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw loads configuration from a JSON or YAML file as a map, selected by
// file extension
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	// Use secure file reading with validation
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var rawConfig map[string]any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		// Validate JSON depth to prevent DoS
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &rawConfig); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rawConfig); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}

	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	// Marshal the base config to JSON then to map
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	// Deep merge the maps
	mergedMap := l.deepMergeMaps(baseMap, override)

	// Convert back to Config
	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	// Copy base values
	for k, v := range base {
		result[k] = v
	}

	// Override with values from override map
	for k, v := range override {
		if v == nil {
			continue
		}

		// If both base and override have maps at this key, merge them
		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		// Otherwise, override takes precedence
		result[k] = v
	}

	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := l.getenv("TOKEN"); val != "" {
		cfg.Token = val
	}

	// Gateway overrides
	if val := l.getenv("GATEWAY_URL"); val != "" {
		cfg.Gateway.URL = val
	}
	if val := l.getenv("GATEWAY_SHARD_COUNT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Gateway.ShardCount = n
		}
	}
	if val := l.getenv("GATEWAY_INTENTS"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			cfg.Gateway.Intents = n
		}
	}

	// REST overrides
	if val := l.getenv("REST_BASE_URL"); val != "" {
		cfg.REST.BaseURL = val
	}

	// Bridge overrides
	if val := l.getenv("BRIDGE_URLS"); val != "" {
		cfg.Bridge.URLs = strings.Split(val, ",")
	}

	// Metrics overrides
	if val := l.getenv("METRICS_PORT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = n
		}
	}

	// Log overrides
	if val := l.getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := l.getenv("LOG_FORMAT"); val != "" {
		cfg.Log.Format = val
	}
}

// getenv reads a prefixed environment variable, dropping values that fail
// basic validation
func (l *Loader) getenv(name string) string {
	key := l.envPrefix + "_" + name
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return ""
	}
	return val
}

// SaveToFile saves the configuration to a JSON or YAML file, selected by file
// extension. The token is written as-is; callers wanting redaction should use
// String instead.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".yaml", ".yml":
		// Round-trip through the JSON field names so YAML files use the same
		// snake_case keys the loader reads back
		var (
			jsonData []byte
			m        map[string]any
		)
		jsonData, err = json.Marshal(c)
		if err != nil {
			return err
		}
		if err = json.Unmarshal(jsonData, &m); err != nil {
			return err
		}
		data, err = yaml.Marshal(m)
	default:
		return fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	// Use secure file writing with validation
	return safeWriteFile(path, data)
}
