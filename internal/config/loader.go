package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".hadeploy.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/hadeploy"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. HADEPLOY_HOST or
	// HADEPLOY_RELOAD_TIMEOUT.
	EnvPrefix = "HADEPLOY"
)

// Load reads config from the specified path, layered over defaults and under
// HADEPLOY_* environment variables. An empty path yields defaults plus env.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'hadeploy init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .hadeploy.yaml in current directory
// 3. .hadeploy.yaml in parent directories (stops at git root or home)
// 4. ~/.config/hadeploy/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	if !isGitRoot(cwd) {
		dir := cwd
		for {
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			if home != "" && parent == home {
				break
			}
			dir = parent

			configPath := filepath.Join(dir, ConfigFileName)
			if _, err := os.Stat(configPath); err == nil {
				return configPath, nil
			}

			if isGitRoot(dir) {
				break
			}
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// Resolve finds and loads the config, falling back to defaults when no file
// exists. It returns the loaded config and the path it came from ("" when
// none), with local artifact paths made absolute.
func Resolve(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}

	root := ProjectRoot(path)
	cfg.Paths.LocalDashboard = ResolveLocal(root, cfg.Paths.LocalDashboard)
	cfg.Paths.LocalTheme = ResolveLocal(root, cfg.Paths.LocalTheme)

	return cfg, path, nil
}

// ProjectRoot returns the directory that relative local paths are resolved
// against: the directory holding the config file, or the working directory.
// A global config file has no project, so it also resolves to the working directory.
func ProjectRoot(configPath string) string {
	if configPath == "" || isGlobalConfig(configPath) {
		cwd, _ := os.Getwd()
		return cwd
	}
	return filepath.Dir(configPath)
}

// ResolveLocal expands p and, when it is relative, joins it to root.
func ResolveLocal(root, p string) string {
	if p == "" {
		return p
	}
	p = ExpandTilde(Expand(p))
	if filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "the environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.Paths.RemoteDashboard = ExpandRemote(cfg.Paths.RemoteDashboard)
	cfg.Paths.RemoteTheme = ExpandRemote(cfg.Paths.RemoteTheme)
	cfg.Key = ExpandTilde(Expand(cfg.Key))
	cfg.SSH.KnownHosts = ExpandTilde(Expand(cfg.SSH.KnownHosts))

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("user", d.User)
	v.SetDefault("key", d.Key)
	v.SetDefault("password", d.Password)
	v.SetDefault("token", d.Token)
	v.SetDefault("keyring", d.Keyring)
	v.SetDefault("backup", d.Backup)
	v.SetDefault("reload_enabled", d.ReloadEnabled)
	v.SetDefault("verify", d.Verify)

	v.SetDefault("paths.local_dashboard", d.Paths.LocalDashboard)
	v.SetDefault("paths.local_theme", d.Paths.LocalTheme)
	v.SetDefault("paths.remote_dashboard", d.Paths.RemoteDashboard)
	v.SetDefault("paths.remote_theme", d.Paths.RemoteTheme)

	v.SetDefault("themes.production", d.Themes.Production)
	v.SetDefault("themes.staging", d.Themes.Staging)

	v.SetDefault("reload.api_url", d.Reload.APIURL)
	v.SetDefault("reload.commands", d.Reload.Commands)
	v.SetDefault("reload.timeout", d.Reload.Timeout.String())
	v.SetDefault("reload.refresh_timeout", d.Reload.RefreshTimeout.String())
	v.SetDefault("reload.browser_refresh", d.Reload.BrowserRefresh)
	v.SetDefault("reload.check_config", d.Reload.CheckConfig)

	v.SetDefault("ssh.connect_timeout", d.SSH.ConnectTimeout.String())
	v.SetDefault("ssh.host_key_policy", d.SSH.HostKeyPolicy)
	v.SetDefault("ssh.known_hosts", d.SSH.KnownHosts)
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}

func isGlobalConfig(path string) bool {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}
