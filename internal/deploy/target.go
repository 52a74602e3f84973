package deploy

import (
	"fmt"

	"github.com/lovelace-tools/hadeploy/internal/errors"
)

// Target is the Home Assistant host and the credentials for one run.
type Target struct {
	Host     string
	Port     int
	User     string
	KeyPath  string
	Password string

	// Token is a Home Assistant long-lived access token; empty disables API reloads.
	Token string
}

// validateAuth requires an SSH credential. Callers pass one; when both are
// set, sshutil authenticates with the key.
func (t Target) validateAuth() error {
	if t.KeyPath == "" && t.Password == "" {
		return errors.New(errors.ErrAuth,
			"No SSH credential given",
			"Pass --key <path> for key authentication or --password / --ask-password")
	}
	return nil
}

// String renders user@host:port for log lines.
func (t Target) String() string {
	s := t.Host
	if t.User != "" {
		s = t.User + "@" + s
	}
	if t.Port != 0 && t.Port != 22 {
		s = fmt.Sprintf("%s:%d", s, t.Port)
	}
	return s
}
