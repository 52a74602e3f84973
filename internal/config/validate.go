package config

import (
	"fmt"
	"strings"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
)

// Validate checks the config for errors and returns structured error messages.
// It does not require host or user; those may still arrive from flags, so
// ValidateTarget checks them once everything is merged.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but hadeploy only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest hadeploy release")
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Port %d is out of range", cfg.Port),
			"Use a port between 1 and 65535 (SSH is usually 22)")
	}

	if cfg.Host != "" && strings.ContainsAny(cfg.Host, "/ ") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' doesn't look like a hostname", cfg.Host),
			"Use a hostname, IP address, or ~/.ssh/config alias")
	}

	if err := validatePaths(cfg.Paths); err != nil {
		return err
	}

	if err := validateThemes(cfg.Themes); err != nil {
		return err
	}

	if err := validateReload(cfg.Reload); err != nil {
		return err
	}

	return validateSSH(cfg.SSH)
}

// ValidateTarget checks the settings a deployment cannot start without.
func ValidateTarget(cfg *Config) error {
	if cfg.Host == "" {
		return errors.New(errors.ErrConfig,
			"No host configured",
			"Pass --host, set 'host' in .hadeploy.yaml, or run 'hadeploy init'")
	}
	if cfg.User == "" {
		return errors.New(errors.ErrConfig,
			"No SSH user configured",
			"Pass --user or set 'user' in .hadeploy.yaml")
	}
	return nil
}

func validatePaths(p PathsConfig) error {
	if p.LocalDashboard == "" {
		return errors.New(errors.ErrConfig,
			"paths.local_dashboard is empty",
			"Point it at your dashboard YAML, e.g. my-dashboard.yaml")
	}
	if p.RemoteDashboard == "" {
		return errors.New(errors.ErrConfig,
			"paths.remote_dashboard is empty",
			"Set it to where Home Assistant reads the dashboard, e.g. "+DefaultRemoteDashboard)
	}
	if err := validateRemotePath("remote_dashboard", p.RemoteDashboard); err != nil {
		return err
	}
	return validateRemotePath("remote_theme", p.RemoteTheme)
}

// validateRemotePath rejects ${VAR} references that survived expansion.
// Tilde is allowed: remote paths may be relative to the SSH user's home.
func validateRemotePath(field, path string) error {
	if strings.Contains(path, "${") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("paths.%s has an unexpanded variable: %s", field, path),
			"Supported variables are ${HOME}, ${USER} and ${PROJECT}")
	}
	if strings.HasSuffix(path, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("paths.%s points at a directory: %s", field, path),
			"Give the full file path including the file name")
	}
	return nil
}

func validateThemes(t ThemesConfig) error {
	if strings.TrimSpace(t.Production) == "" || strings.TrimSpace(t.Staging) == "" {
		return errors.New(errors.ErrConfig,
			"Theme names can't be empty",
			"Set themes.production and themes.staging")
	}
	if t.Production == t.Staging {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Production and staging themes are both '%s'", t.Production),
			"Staging needs its own theme name so it doesn't replace the production theme")
	}
	if strings.Contains(t.Production, "\n") || strings.Contains(t.Staging, "\n") {
		return errors.New(errors.ErrConfig,
			"Theme names must be a single line",
			"Remove the line break from the theme name")
	}
	return nil
}

func validateReload(r ReloadConfig) error {
	if len(r.Commands) == 0 {
		return errors.New(errors.ErrConfig,
			"reload.commands is empty",
			"List at least one command, e.g. '"+DefaultReloadCommands[0]+"'")
	}
	for i, cmd := range r.Commands {
		if strings.TrimSpace(cmd) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("reload.commands[%d] is empty", i),
				"Remove the blank entry")
		}
	}
	if r.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("reload.timeout must be positive, got %s", r.Timeout),
			"Use a duration like 30s")
	}
	if r.RefreshTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("reload.refresh_timeout must be positive, got %s", r.RefreshTimeout),
			"Use a duration like 10s")
	}
	if r.APIURL != "" && !strings.HasPrefix(r.APIURL, "http://") && !strings.HasPrefix(r.APIURL, "https://") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("reload.api_url '%s' is not an http(s) URL", r.APIURL),
			"Use something like "+DefaultAPIURL)
	}
	return nil
}

func validateSSH(s SSHConfig) error {
	if s.ConnectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("ssh.connect_timeout must be positive, got %s", s.ConnectTimeout),
			"Use a duration like 10s")
	}
	if sshutil.ValidHostKeyPolicy(sshutil.HostKeyPolicy(s.HostKeyPolicy)) {
		return nil
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown ssh.host_key_policy '%s'", s.HostKeyPolicy),
		fmt.Sprintf("Use one of: %s, %s, %s", sshutil.HostKeyStrict, sshutil.HostKeyAcceptNew, sshutil.HostKeyInsecure))
}
