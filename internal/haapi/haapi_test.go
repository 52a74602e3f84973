package haapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	c := New("http://localhost:8123/", "abc123")

	tests := []struct {
		name string
		cmd  string
		url  string
	}{
		{name: "reload", cmd: c.ReloadCoreConfig(), url: "http://localhost:8123/api/services/homeassistant/reload_core_config"},
		{name: "browser refresh", cmd: c.BrowserRefresh(), url: "http://localhost:8123/api/services/browser_mod/refresh"},
		{name: "check config", cmd: c.CheckConfig(), url: "http://localhost:8123/api/config/core/check_config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := "curl -sf -X POST -H 'Authorization: Bearer abc123' -H 'Content-Type: application/json' '" + tt.url + "'"
			assert.Equal(t, want, tt.cmd)
		})
	}
}

func TestCommands_QuoteToken(t *testing.T) {
	c := New("http://localhost:8123", "it's")
	assert.Contains(t, c.ReloadCoreConfig(), `'Authorization: Bearer it'\''s'`)
}

func TestParseCheckResult(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      CheckResult
		wantValid bool
		wantErr   string
	}{
		{
			name:      "valid",
			body:      `{"result": "valid", "errors": null, "warnings": null}`,
			want:      CheckResult{Result: "valid"},
			wantValid: true,
		},
		{
			name: "invalid with error text",
			body: `{"result": "invalid", "errors": "Invalid config for [lovelace]", "warnings": null}`,
			want: CheckResult{Result: "invalid", Errors: "Invalid config for [lovelace]"},
		},
		{
			name:      "warnings list",
			body:      `{"result": "valid", "errors": null, "warnings": ["a", "b"]}`,
			want:      CheckResult{Result: "valid", Warnings: "a; b"},
			wantValid: true,
		},
		{
			name:    "empty body",
			body:    "  ",
			wantErr: "empty response",
		},
		{
			name:    "not json",
			body:    "502 Bad Gateway",
			wantErr: "not JSON",
		},
		{
			name:    "missing result",
			body:    `{"message": "ok"}`,
			wantErr: "no result field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCheckResult([]byte(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantValid, got.Valid())
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate(" short ", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
