package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrAuth,
		ErrLocalFile,
		ErrSSH,
		ErrTransfer,
		ErrExec,
		ErrBackup,
		ErrReload,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "auth error",
			code:       ErrAuth,
			message:    "No SSH credential given",
			suggestion: "Pass --key or --password",
		},
		{
			name:       "local file error",
			code:       ErrLocalFile,
			message:    "Local dashboard file not found: my-dashboard.yaml",
			suggestion: "Check the --local path",
		},
		{
			name:       "transfer error",
			code:       ErrTransfer,
			message:    "Dashboard upload failed",
			suggestion: "Check the remote directory is writable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
	}{
		{
			name:          "message and suggestion",
			err:           New(ErrConfig, "Invalid configuration", "Check .hadeploy.yaml syntax"),
			expectedParts: []string{"✗ Invalid configuration", "Check .hadeploy.yaml syntax"},
		},
		{
			name:          "cause is included",
			err:           WrapWithCode(errors.New("permission denied"), ErrTransfer, "Upload failed", ""),
			expectedParts: []string{"Upload failed", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()
			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
		})
	}
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("dial tcp 192.0.2.1:22: i/o timeout"),
		ErrSSH,
		"Can't reach 'ha' at 192.0.2.1:22",
		"Connection timed out. Host might be offline or blocked by a firewall.",
	)

	lines := strings.Split(err.Error(), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "✗"))
	assert.Contains(t, lines[0], "Can't reach 'ha'")
}

func TestWrapWithCode_Unwraps(t *testing.T) {
	cause := errors.New("underlying network error")
	wrapped := WrapWithCode(cause, ErrSSH, "SSH connection failed", "")

	assert.Equal(t, ErrSSH, wrapped.Code)
	assert.Equal(t, cause, wrapped.Cause)
	assert.True(t, errors.Is(wrapped, cause))
}

func TestErrorsAs(t *testing.T) {
	var err error = New(ErrAuth, "No credential", "")

	var hdErr *Error
	require.True(t, errors.As(err, &hdErr))
	assert.Equal(t, ErrAuth, hdErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrTransfer, "Upload failed", "")

	assert.True(t, IsCode(err, ErrTransfer))
	assert.False(t, IsCode(err, ErrSSH))
	assert.False(t, IsCode(errors.New("standard error"), ErrTransfer))
	assert.False(t, IsCode(nil, ErrTransfer))
}

func TestIsWarning(t *testing.T) {
	assert.True(t, IsWarning(New(ErrBackup, "backup failed", "")))
	assert.True(t, IsWarning(New(ErrReload, "reload failed", "")))
	assert.False(t, IsWarning(New(ErrTransfer, "upload failed", "")))
	assert.False(t, IsWarning(nil))
}
