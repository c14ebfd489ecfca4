package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: "empty config path",
		},
		{
			name:    "path too long",
			path:    strings.Repeat("a", maxPathLen+1) + ".json",
			wantErr: "path too long",
		},
		{
			name:    "relative traversal",
			path:    "../../../etc/passwd",
			wantErr: "path traversal not allowed",
		},
		{
			name: "relative json in working directory",
			path: "config.json",
		},
		{
			name: "absolute yaml path",
			path: "/tmp/chatkit/config.yaml",
		},
		{
			name: "yml extension",
			path: "config.yml",
		},
		{
			name:    "toml rejected",
			path:    "config.toml",
			wantErr: "only JSON and YAML config files allowed",
		},
		{
			name:    "no extension rejected",
			path:    "config",
			wantErr: "only JSON and YAML config files allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSafeReadFile_MissingFile(t *testing.T) {
	_, err := safeReadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot stat config file")
}

func TestSafeReadFile_NotRegularFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dir.json")
	require.NoError(t, os.Mkdir(dir, 0750))

	_, err := safeReadFile(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a regular file")
}

func TestSafeWriteFile_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, safeWriteFile(path, []byte(`{}`)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSafeWriteFile_RejectsBadPath(t *testing.T) {
	err := safeWriteFile("../escape.json", []byte(`{}`))
	require.Error(t, err)
}

func TestValidateEnvVar(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty value ok", "", false},
		{"normal value ok", "Bot.abc123", false},
		{"max length ok", strings.Repeat("a", maxEnvVarLen), false},
		{"too long", strings.Repeat("a", maxEnvVarLen+1), true},
		{"null byte", "token\x00injected", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvVar("CHATKIT_TOKEN", tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateJSONDepth(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name: "flat object",
			data: `{"token": "x"}`,
		},
		{
			name: "nested sections",
			data: `{"gateway": {"intents": 513}, "rest": {"timeout": "30s"}}`,
		},
		{
			name: "brackets inside strings ignored",
			data: `{"message": "{{[["}`,
		},
		{
			name: "escaped quotes inside strings",
			data: `{"message": "say \"{\" here"}`,
		},
		{
			name:    "too deep",
			data:    strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1),
			wantErr: "JSON nesting too deep",
		},
		{
			name:    "unbalanced close",
			data:    `{"a": 1}}`,
			wantErr: "unbalanced brackets",
		},
		{
			name:    "unclosed open",
			data:    `{"a": {`,
			wantErr: "unclosed brackets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateJSONDepth([]byte(tt.data))
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
