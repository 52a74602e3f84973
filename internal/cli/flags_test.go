package cli

import (
	"testing"
	"time"

	"github.com/lovelace-tools/hadeploy/internal/config"
	"github.com/lovelace-tools/hadeploy/internal/deploy"
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty string returns zero", flag: "", want: 0},
		{name: "valid seconds", flag: "5s", want: 5 * time.Second},
		{name: "valid minutes", flag: "2m", want: 2 * time.Minute},
		{name: "valid complex duration", flag: "1m30s", want: 90 * time.Second},
		{name: "missing unit", flag: "5", wantErr: true},
		{name: "not a duration", flag: "fast", wantErr: true},
		{name: "negative", flag: "-5s", wantErr: true},
		{name: "zero", flag: "0s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeout(tt.flag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddDeployFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &DeployFlags{}

	AddDeployFlags(cmd, flags)

	for _, name := range []string{
		"host", "user", "port", "key", "password", "ask-password", "token",
		"local", "remote", "theme", "theme-local", "theme-remote",
		"stage", "promote", "no-reload", "no-backup", "verify", "check-yaml",
		"no-keyring", "connect-timeout", "host-key-policy",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s should be registered", name)
	}
	assert.Equal(t, "22", cmd.Flags().Lookup("port").DefValue)

	require.NoError(t, cmd.Flags().Set("host", "ha.local"))
	require.NoError(t, cmd.Flags().Set("stage", "true"))
	assert.Equal(t, "ha.local", flags.Host)
	assert.True(t, flags.Stage)
}

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   DeployFlags
		changed []string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name:  "unset flags keep config values",
			flags: DeployFlags{Host: "ignored", Port: 22},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "from-config", cfg.Host)
				assert.Equal(t, 2222, cfg.Port)
				assert.Equal(t, "/cfg/dash.yaml", cfg.Paths.LocalDashboard)
			},
		},
		{
			name:    "connection flags override",
			flags:   DeployFlags{Host: "ha.local", User: "hassio", Port: 22, Password: "pw"},
			changed: []string{"host", "user", "port", "password"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "ha.local", cfg.Host)
				assert.Equal(t, "hassio", cfg.User)
				assert.Equal(t, 22, cfg.Port)
				assert.Equal(t, "pw", cfg.Password)
			},
		},
		{
			name:    "local paths resolve against cwd",
			flags:   DeployFlags{Local: "dash.yaml", ThemeLocal: "/abs/theme.yaml"},
			changed: []string{"local", "theme-local"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "/work/dash.yaml", cfg.Paths.LocalDashboard)
				assert.Equal(t, "/abs/theme.yaml", cfg.Paths.LocalTheme)
			},
		},
		{
			name:    "remote paths",
			flags:   DeployFlags{Remote: "/config/dashboards/home.yaml", ThemeRemote: "/config/themes/x.yaml"},
			changed: []string{"remote", "theme-remote"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, "/config/dashboards/home.yaml", cfg.Paths.RemoteDashboard)
				assert.Equal(t, "/config/themes/x.yaml", cfg.Paths.RemoteTheme)
			},
		},
		{
			name:  "negations",
			flags: DeployFlags{NoBackup: true, NoReload: true, NoKeyring: true, Verify: true},
			check: func(t *testing.T, cfg *config.Config) {
				assert.False(t, cfg.Backup)
				assert.False(t, cfg.ReloadEnabled)
				assert.False(t, cfg.Keyring)
				assert.True(t, cfg.Verify)
			},
		},
		{
			name:    "ssh settings",
			flags:   DeployFlags{ConnectTimeout: "3s", HostKeyPolicy: "strict"},
			changed: []string{"connect-timeout", "host-key-policy"},
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 3*time.Second, cfg.SSH.ConnectTimeout)
				assert.Equal(t, "strict", cfg.SSH.HostKeyPolicy)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Host = "from-config"
			cfg.Port = 2222
			cfg.Paths.LocalDashboard = "/cfg/dash.yaml"

			require.NoError(t, ApplyFlags(cfg, &tt.flags, changedSet(tt.changed...), "/work"))
			tt.check(t, cfg)
		})
	}
}

func TestApplyFlags_BadTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	err := ApplyFlags(cfg, &DeployFlags{ConnectTimeout: "soon"}, changedSet("connect-timeout"), "/work")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestBuildOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Host = "ha.local"
	cfg.User = "root"
	cfg.Key = "/keys/ha"
	cfg.Verify = true
	cfg.Paths.RemoteTheme = "/config/themes/custom.yaml"
	cfg.Reload.CheckConfig = true
	cfg.SSH.HostKeyPolicy = "strict"
	cfg.SSH.KnownHosts = "/tmp/known_hosts"

	opts := BuildOptions(cfg, deploy.ModeStage, &DeployFlags{Theme: true, CheckYAML: true}, "tok")

	assert.Equal(t, deploy.Target{Host: "ha.local", Port: 22, User: "root", KeyPath: "/keys/ha", Token: "tok"}, opts.Target)
	assert.Equal(t, deploy.ModeStage, opts.Mode)
	assert.Equal(t, "/config/themes/custom.yaml", opts.Paths.RemoteTheme)
	assert.True(t, opts.Theme)
	assert.True(t, opts.Backup)
	assert.True(t, opts.Reload)
	assert.True(t, opts.Verify)
	assert.True(t, opts.CheckYAML)
	assert.Equal(t, config.DefaultReloadCommands, opts.ReloadOptions.Commands)
	assert.Equal(t, config.DefaultAPIURL, opts.ReloadOptions.APIURL)
	assert.Equal(t, 30*time.Second, opts.ReloadOptions.Timeout)
	assert.Equal(t, 10*time.Second, opts.ReloadOptions.RefreshTimeout)
	assert.True(t, opts.ReloadOptions.CheckConfig)
	assert.Equal(t, 10*time.Second, opts.ConnectTimeout)
	assert.Equal(t, sshutil.HostKeyStrict, opts.HostKeyPolicy)
	assert.Equal(t, "/tmp/known_hosts", opts.KnownHostsPath)
}

func TestPickCredential(t *testing.T) {
	tests := []struct {
		name          string
		key, password string
		keyOnCLI      bool
		passwordOnCLI bool
		wantKey       string
		wantPassword  string
	}{
		{name: "key only", key: "/k", keyOnCLI: true, wantKey: "/k"},
		{name: "password only", password: "pw", wantPassword: "pw"},
		{name: "neither", wantKey: "", wantPassword: ""},
		{name: "cli password over config key", key: "/k", password: "pw", passwordOnCLI: true, wantPassword: "pw"},
		{name: "cli key over config password", key: "/k", password: "pw", keyOnCLI: true, wantKey: "/k"},
		{name: "both from config", key: "/k", password: "pw", wantKey: "/k"},
		{name: "both from cli", key: "/k", password: "pw", keyOnCLI: true, passwordOnCLI: true, wantKey: "/k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Key = tt.key
			cfg.Password = tt.password

			pickCredential(cfg, tt.keyOnCLI, tt.passwordOnCLI)

			assert.Equal(t, tt.wantKey, cfg.Key)
			assert.Equal(t, tt.wantPassword, cfg.Password)
		})
	}
}
