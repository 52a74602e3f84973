package config

import (
	"testing"
	"time"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:   "host alias is valid",
			modify: func(c *Config) { c.Host = "homeassistant" },
		},
		{
			name:    "future version",
			modify:  func(c *Config) { c.Version = CurrentConfigVersion + 1 },
			wantErr: "from the future",
		},
		{
			name:    "port zero",
			modify:  func(c *Config) { c.Port = 0 },
			wantErr: "out of range",
		},
		{
			name:    "port too large",
			modify:  func(c *Config) { c.Port = 70000 },
			wantErr: "out of range",
		},
		{
			name:    "host with path",
			modify:  func(c *Config) { c.Host = "ha/config" },
			wantErr: "doesn't look like a hostname",
		},
		{
			name:    "empty local dashboard",
			modify:  func(c *Config) { c.Paths.LocalDashboard = "" },
			wantErr: "local_dashboard is empty",
		},
		{
			name:    "empty remote dashboard",
			modify:  func(c *Config) { c.Paths.RemoteDashboard = "" },
			wantErr: "remote_dashboard is empty",
		},
		{
			name:    "unexpanded remote variable",
			modify:  func(c *Config) { c.Paths.RemoteDashboard = "/config/${BRANCH}/main.yaml" },
			wantErr: "unexpanded variable",
		},
		{
			name:    "remote theme is a directory",
			modify:  func(c *Config) { c.Paths.RemoteTheme = "/config/themes/" },
			wantErr: "points at a directory",
		},
		{
			name:   "tilde remote path is allowed",
			modify: func(c *Config) { c.Paths.RemoteDashboard = "~/config/lovelace/main.yaml" },
		},
		{
			name:    "empty staging theme",
			modify:  func(c *Config) { c.Themes.Staging = "  " },
			wantErr: "can't be empty",
		},
		{
			name:    "staging equals production",
			modify:  func(c *Config) { c.Themes.Staging = c.Themes.Production },
			wantErr: "both",
		},
		{
			name:    "multi-line theme",
			modify:  func(c *Config) { c.Themes.Production = "A\nB" },
			wantErr: "single line",
		},
		{
			name:    "no reload commands",
			modify:  func(c *Config) { c.Reload.Commands = nil },
			wantErr: "reload.commands is empty",
		},
		{
			name:    "blank reload command",
			modify:  func(c *Config) { c.Reload.Commands = []string{"hassio homeassistant reload core_config", " "} },
			wantErr: "reload.commands[1]",
		},
		{
			name:    "zero reload timeout",
			modify:  func(c *Config) { c.Reload.Timeout = 0 },
			wantErr: "reload.timeout",
		},
		{
			name:    "negative refresh timeout",
			modify:  func(c *Config) { c.Reload.RefreshTimeout = -time.Second },
			wantErr: "refresh_timeout",
		},
		{
			name:    "api url without scheme",
			modify:  func(c *Config) { c.Reload.APIURL = "localhost:8123" },
			wantErr: "not an http(s) URL",
		},
		{
			name:    "zero connect timeout",
			modify:  func(c *Config) { c.SSH.ConnectTimeout = 0 },
			wantErr: "connect_timeout",
		},
		{
			name:    "unknown host key policy",
			modify:  func(c *Config) { c.SSH.HostKeyPolicy = "yolo" },
			wantErr: "host_key_policy",
		},
		{
			name:   "insecure host key policy",
			modify: func(c *Config) { c.SSH.HostKeyPolicy = "insecure" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestValidateTarget(t *testing.T) {
	cfg := DefaultConfig()

	err := ValidateTarget(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No host configured")

	cfg.Host = "homeassistant.local"
	err = ValidateTarget(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No SSH user configured")

	cfg.User = "root"
	assert.NoError(t, ValidateTarget(cfg))
}
