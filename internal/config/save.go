package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Save writes cfg to path as YAML. The file is created with 0600 permissions
// because it may hold a password or token.
func Save(path string, cfg *Config) error {
	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(buf.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetValue sets a dotted key (e.g. "reload.timeout") to value in the config
// file at configPath. It preserves the existing YAML structure and comments,
// creating intermediate mappings as needed.
func SetValue(configPath, key, value string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if root.Kind != yaml.DocumentNode {
		return fmt.Errorf("invalid YAML document structure")
	}

	node := root.Content[0]
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at document root")
	}

	parts := strings.Split(key, ".")
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("invalid key %q", key)
		}
		last := i == len(parts)-1
		child := findMapValue(node, part)

		if last {
			if child == nil {
				node.Content = append(node.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part},
					&yaml.Node{Kind: yaml.ScalarNode, Value: value})
				break
			}
			if child.Kind != yaml.ScalarNode {
				return fmt.Errorf("'%s' is not a single value", key)
			}
			child.Tag = ""
			child.Style = 0
			child.Value = value
			break
		}

		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}, child)
		}
		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("'%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		node = child
	}

	var buf strings.Builder
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	encoder.Close()

	info, err := os.Stat(configPath)
	mode := os.FileMode(0o600)
	if err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(configPath, []byte(buf.String()), mode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}

// MarshalYAML writes durations as strings ("30s") so the file stays readable.
func (r ReloadConfig) MarshalYAML() (interface{}, error) {
	return struct {
		APIURL         string   `yaml:"api_url"`
		Commands       []string `yaml:"commands"`
		Timeout        string   `yaml:"timeout"`
		RefreshTimeout string   `yaml:"refresh_timeout"`
		BrowserRefresh bool     `yaml:"browser_refresh"`
		CheckConfig    bool     `yaml:"check_config"`
	}{
		APIURL:         r.APIURL,
		Commands:       r.Commands,
		Timeout:        r.Timeout.String(),
		RefreshTimeout: r.RefreshTimeout.String(),
		BrowserRefresh: r.BrowserRefresh,
		CheckConfig:    r.CheckConfig,
	}, nil
}

// MarshalYAML writes the connect timeout as a string.
func (s SSHConfig) MarshalYAML() (interface{}, error) {
	return struct {
		ConnectTimeout string `yaml:"connect_timeout"`
		HostKeyPolicy  string `yaml:"host_key_policy"`
		KnownHosts     string `yaml:"known_hosts,omitempty"`
	}{
		ConnectTimeout: s.ConnectTimeout.String(),
		HostKeyPolicy:  s.HostKeyPolicy,
		KnownHosts:     s.KnownHosts,
	}, nil
}
