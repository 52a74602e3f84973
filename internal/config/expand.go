package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
// Use this for LOCAL paths only. Remote paths should keep ~ for the remote shell.
func ExpandTilde(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}

	return path
}

// Expand replaces variables in a local string with their values.
// Supported variables:
//   - ${PROJECT} - name of the directory holding the dashboard repo
//   - ${USER}    - current username
//   - ${HOME}    - user's home directory
//
// Note: Does NOT expand ~ - use ExpandTilde for that.
func Expand(s string) string {
	if s == "" {
		return s
	}

	result := s

	if strings.Contains(result, "${PROJECT}") {
		result = strings.ReplaceAll(result, "${PROJECT}", getProject())
	}

	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}

	if strings.Contains(result, "${HOME}") {
		result = strings.ReplaceAll(result, "${HOME}", getHome())
	}

	return result
}

// ExpandRemote replaces variables in a path on the Home Assistant host.
// ${HOME} becomes ~ so the remote side resolves it; ${USER} and ${PROJECT}
// come from the local context.
func ExpandRemote(s string) string {
	if s == "" {
		return s
	}

	result := s

	if strings.Contains(result, "${PROJECT}") {
		result = strings.ReplaceAll(result, "${PROJECT}", getProject())
	}

	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}

	if strings.Contains(result, "${HOME}") {
		result = strings.ReplaceAll(result, "${HOME}", "~")
	}

	return result
}

// getProject returns the project name for ${PROJECT} expansion.
// Priority: git repo root name > directory name.
func getProject() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	if out, err := cmd.Output(); err == nil {
		if top := strings.TrimSpace(string(out)); top != "" {
			return filepath.Base(top)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "project"
	}
	return filepath.Base(cwd)
}

// getUser returns the current username for ${USER} expansion.
func getUser() string {
	for _, env := range []string{"USER", "LOGNAME", "USERNAME"} {
		if user := os.Getenv(env); user != "" {
			return user
		}
	}

	out, err := exec.Command("whoami").Output()
	if err != nil {
		return "user"
	}
	return strings.TrimSpace(string(out))
}

// getHome returns the home directory for ${HOME} expansion.
func getHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return "~"
}
