package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestTokenCommands(t *testing.T) {
	setupProject(t, projectConfig)

	out, err := runCLI("token", "set", "abcdefgh1234")
	require.NoError(t, err)
	assert.Contains(t, out, "Token stored for ha.local")

	stored, err := keyring.Get("ha.local")
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh1234", stored)

	out, err = runCLI("token", "get")
	require.NoError(t, err)
	assert.Equal(t, "********1234\n", out)

	out, err = runCLI("token", "get", "--show")
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh1234\n", out)

	out, err = runCLI("token", "delete")
	require.NoError(t, err)
	assert.Contains(t, out, "Token removed for ha.local")

	_, err = runCLI("token", "get")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestTokenCommands_HostFlag(t *testing.T) {
	setupProject(t, "")

	_, err := runCLI("token", "set", "--host", "Other.Local", "tok-9999")
	require.NoError(t, err)

	stored, err := keyring.Get("other.local")
	require.NoError(t, err)
	assert.Equal(t, "tok-9999", stored)
}

func TestTokenCommands_NoHost(t *testing.T) {
	setupProject(t, "")

	_, err := runCLI("token", "get")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No host")
}

func TestTokenCommands_KeyringError(t *testing.T) {
	setupProject(t, projectConfig)
	gokeyring.MockInitWithError(errors.New(errors.ErrConfig, "locked", ""))

	_, err := runCLI("token", "set", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Couldn't save the token")
}

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("  tok-123 \nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "tok-123", got)

	got, err = readLine(bytes.NewReader([]byte("no-newline")))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}
