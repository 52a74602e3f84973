package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg := DefaultConfig()
	cfg.Host = "homeassistant.local"
	cfg.User = "root"
	cfg.Key = "/keys/ha"
	cfg.Reload.Timeout = 45 * time.Second

	require.NoError(t, Save(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 45s")
	assert.Contains(t, string(data), "connect_timeout: 10s")
	assert.NotContains(t, string(data), "password:")
	assert.NotContains(t, string(data), "token:")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSetValue(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		key      string
		value    string
		contains []string
		wantErr  string
	}{
		{
			name:     "replace top-level value keeps comments",
			initial:  "# my HA box\nhost: old\nuser: root\n",
			key:      "host",
			value:    "new.local",
			contains: []string{"# my HA box", "host: new.local", "user: root"},
		},
		{
			name:     "add top-level value",
			initial:  "host: ha\n",
			key:      "user",
			value:    "hassio",
			contains: []string{"host: ha", "user: hassio"},
		},
		{
			name:     "nested value in existing section",
			initial:  "reload:\n  timeout: 30s\n",
			key:      "reload.timeout",
			value:    "1m",
			contains: []string{"timeout: 1m"},
		},
		{
			name:     "creates missing section",
			initial:  "host: ha\n",
			key:      "themes.staging",
			value:    "Beta",
			contains: []string{"themes:", "staging: Beta"},
		},
		{
			name:     "empty file",
			initial:  "",
			key:      "host",
			value:    "ha",
			contains: []string{"host: ha"},
		},
		{
			name:    "section is not a value",
			initial: "reload:\n  timeout: 30s\n",
			key:     "reload",
			value:   "x",
			wantErr: "not a single value",
		},
		{
			name:    "value is not a section",
			initial: "host: ha\n",
			key:     "host.name",
			value:   "x",
			wantErr: "not a section",
		},
		{
			name:    "empty key part",
			initial: "host: ha\n",
			key:     "reload..timeout",
			value:   "x",
			wantErr: "invalid key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.initial), 0o644))

			err := SetValue(path, tt.key, tt.value)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, string(data), want)
			}

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
		})
	}
}

func TestSetValue_LoadsBack(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("host: ha\nport: 22\n"), 0o644))

	require.NoError(t, SetValue(path, "port", "2222"))
	require.NoError(t, SetValue(path, "reload.timeout", "90s"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.Reload.Timeout)
}

func TestSetValue_MissingFile(t *testing.T) {
	err := SetValue(filepath.Join(t.TempDir(), "missing.yaml"), "host", "ha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
