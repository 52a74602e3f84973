package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .hadeploy.yaml configuration file.
// Every field can be overridden on the command line.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Host is the Home Assistant server: hostname, IP, or ~/.ssh/config alias.
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
	User string `yaml:"user" mapstructure:"user"`

	// Key and Password are the two SSH credentials; exactly one is used.
	Key      string `yaml:"key,omitempty" mapstructure:"key"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`

	// Token is a Home Assistant long-lived access token for API reloads.
	Token string `yaml:"token,omitempty" mapstructure:"token"`

	// Keyring looks the token up in the OS keyring when Token is empty.
	Keyring bool `yaml:"keyring" mapstructure:"keyring"`

	Backup        bool `yaml:"backup" mapstructure:"backup"`
	ReloadEnabled bool `yaml:"reload_enabled" mapstructure:"reload_enabled"`

	// Verify stats each uploaded file and compares its size with what was sent.
	Verify bool `yaml:"verify" mapstructure:"verify"`

	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Themes ThemesConfig `yaml:"themes" mapstructure:"themes"`
	Reload ReloadConfig `yaml:"reload" mapstructure:"reload"`
	SSH    SSHConfig    `yaml:"ssh" mapstructure:"ssh"`
}

// PathsConfig holds the local and remote artifact locations.
// Relative local paths resolve against the directory holding the config file.
type PathsConfig struct {
	LocalDashboard  string `yaml:"local_dashboard" mapstructure:"local_dashboard"`
	LocalTheme      string `yaml:"local_theme" mapstructure:"local_theme"`
	RemoteDashboard string `yaml:"remote_dashboard" mapstructure:"remote_dashboard"`

	// RemoteTheme defaults to <config dir>/themes/<local theme name>, where
	// <config dir> is two levels above RemoteDashboard.
	RemoteTheme string `yaml:"remote_theme,omitempty" mapstructure:"remote_theme"`
}

// ThemesConfig names the theme in production and in staging. The production
// name must match the top-level key of the theme file.
type ThemesConfig struct {
	Production string `yaml:"production" mapstructure:"production"`
	Staging    string `yaml:"staging" mapstructure:"staging"`
}

// ReloadConfig controls how Home Assistant is told to re-read its YAML.
type ReloadConfig struct {
	// APIURL is the Home Assistant base URL as seen from the remote host.
	APIURL string `yaml:"api_url" mapstructure:"api_url"`

	// Commands are tried in order when the API is unavailable or fails.
	Commands []string `yaml:"commands" mapstructure:"commands"`

	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" mapstructure:"refresh_timeout"`

	// BrowserRefresh asks Browser Mod to refresh open dashboards after an API reload.
	BrowserRefresh bool `yaml:"browser_refresh" mapstructure:"browser_refresh"`

	// CheckConfig validates the configuration through the API before reloading.
	CheckConfig bool `yaml:"check_config" mapstructure:"check_config"`
}

// SSHConfig controls the SSH connection.
type SSHConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// HostKeyPolicy is one of strict, accept-new or insecure.
	HostKeyPolicy string `yaml:"host_key_policy" mapstructure:"host_key_policy"`

	// KnownHosts overrides ~/.ssh/known_hosts.
	KnownHosts string `yaml:"known_hosts,omitempty" mapstructure:"known_hosts"`
}

// Defaults for a stock Home Assistant OS install.
const (
	DefaultLocalDashboard  = "my-dashboard.yaml"
	DefaultLocalTheme      = "themes/my_dashboard_theme.yaml"
	DefaultRemoteDashboard = "/config/lovelace/my-dashboard.yaml"
	DefaultProductionTheme = "My Dashboard Theme"
	DefaultStagingTheme    = "My Dashboard Theme - Staging"
	DefaultAPIURL          = "http://localhost:8123"
	DefaultHostKeyPolicy   = "accept-new"
)

// DefaultReloadCommands cover a supervisor-managed install, a core install
// running as the homeassistant service account, and a container install.
var DefaultReloadCommands = []string{
	"hassio homeassistant reload core_config",
	"sudo -u homeassistant -H /srv/homeassistant/bin/homeassistant --script reload_core_config",
	"docker exec homeassistant homeassistant --script reload_core_config",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	commands := make([]string, len(DefaultReloadCommands))
	copy(commands, DefaultReloadCommands)

	return &Config{
		Version:       CurrentConfigVersion,
		Port:          22,
		Keyring:       true,
		Backup:        true,
		ReloadEnabled: true,
		Paths: PathsConfig{
			LocalDashboard:  DefaultLocalDashboard,
			LocalTheme:      DefaultLocalTheme,
			RemoteDashboard: DefaultRemoteDashboard,
		},
		Themes: ThemesConfig{
			Production: DefaultProductionTheme,
			Staging:    DefaultStagingTheme,
		},
		Reload: ReloadConfig{
			APIURL:         DefaultAPIURL,
			Commands:       commands,
			Timeout:        30 * time.Second,
			RefreshTimeout: 10 * time.Second,
			BrowserRefresh: true,
		},
		SSH: SSHConfig{
			ConnectTimeout: 10 * time.Second,
			HostKeyPolicy:  DefaultHostKeyPolicy,
		},
	}
}
