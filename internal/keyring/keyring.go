// Package keyring stores Home Assistant access tokens in the OS keyring
// (macOS Keychain, Secret Service, Windows Credential Manager), keyed by host.
package keyring

import (
	stderrors "errors"
	"strings"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	gokeyring "github.com/zalando/go-keyring"
)

// Service is the keyring service name entries are stored under.
const Service = "hadeploy"

// Get returns the token stored for host, or "" when there is none.
func Get(host string) (string, error) {
	token, err := gokeyring.Get(Service, account(host))
	if err != nil {
		if stderrors.Is(err, gokeyring.ErrNotFound) {
			return "", nil
		}
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read the token from the OS keyring",
			"Pass --token or set HADEPLOY_TOKEN instead, or use --no-keyring")
	}
	return token, nil
}

// Set stores token for host, replacing any existing entry.
func Set(host, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New(errors.ErrConfig,
			"Refusing to store an empty token",
			"Create a long-lived access token in your Home Assistant profile page")
	}
	if err := gokeyring.Set(Service, account(host), token); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't save the token to the OS keyring",
			"Store it in .hadeploy.yaml as 'token' or export HADEPLOY_TOKEN instead")
	}
	return nil
}

// Delete removes the token for host. Deleting a missing entry is not an error.
func Delete(host string) error {
	err := gokeyring.Delete(Service, account(host))
	if err != nil && !stderrors.Is(err, gokeyring.ErrNotFound) {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't remove the token from the OS keyring",
			"Remove the 'hadeploy' entry with your OS keyring tool")
	}
	return nil
}

// account normalizes the host so "HA.local" and "ha.local" share an entry.
func account(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "default"
	}
	return host
}
