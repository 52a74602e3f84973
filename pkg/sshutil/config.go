package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry represents a parsed host entry from SSH config.
type SSHHostEntry struct {
	Alias        string // The Host pattern (alias)
	Hostname     string // The HostName value (actual host to connect to)
	User         string // The User value
	Port         string // The Port value
	IdentityFile string // The IdentityFile value
}

// Description returns a user-friendly description of the host.
func (h SSHHostEntry) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}

	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}

	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}

	return strings.Join(parts, ", ")
}

// ParseSSHConfig parses ~/.ssh/config and returns the concrete host aliases,
// used to offer hosts in the init wizard.
func ParseSSHConfig() ([]SSHHostEntry, error) {
	configPath := filepath.Join(homeDir(), ".ssh", "config")
	return ParseSSHConfigFile(configPath)
}

// ParseSSHConfigFile parses the specified SSH config file.
func ParseSSHConfigFile(configPath string) ([]SSHHostEntry, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No SSH config is fine
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []SSHHostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			// Skip wildcards and special patterns
			if strings.Contains(alias, "*") || strings.Contains(alias, "?") {
				continue
			}

			// Skip if we've already seen this alias
			if seen[alias] {
				continue
			}
			seen[alias] = true

			entry := SSHHostEntry{
				Alias: alias,
			}

			// Get values from config
			if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
				entry.Hostname = hostname
			}

			if user, _ := cfg.Get(alias, "User"); user != "" {
				entry.User = user
			}

			if port, _ := cfg.Get(alias, "Port"); port != "" {
				entry.Port = port
			}

			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				entry.IdentityFile = expandPath(identity)
			}

			hosts = append(hosts, entry)
		}
	}

	// Sort by alias for consistent ordering
	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}

// KeyPath returns the IdentityFile configured for the host if it exists,
// otherwise the first default key found in ~/.ssh. Empty means no key.
func (h SSHHostEntry) KeyPath() string {
	if h.IdentityFile != "" {
		if _, err := os.Stat(h.IdentityFile); err == nil {
			return h.IdentityFile
		}
	}
	return DefaultKeyPath()
}

// DefaultKeyPath returns the first of the standard private keys present in ~/.ssh.
func DefaultKeyPath() string {
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		key := filepath.Join(homeDir(), ".ssh", name)
		if _, err := os.Stat(key); err == nil {
			return key
		}
	}
	return ""
}
