package deploy

import (
	"testing"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		stage   bool
		promote bool
		want    Mode
		wantErr bool
	}{
		{name: "default is production", want: ModeProduction},
		{name: "stage", stage: true, want: ModeStage},
		{name: "promote", promote: true, want: ModePromote},
		{name: "both rejected", stage: true, promote: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ModeFromFlags(tt.stage, tt.promote)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMode_Labels(t *testing.T) {
	tests := []struct {
		mode      Mode
		label     string
		name      string
		theme     bool
		dashLabel string
	}{
		{ModeProduction, "PRODUCTION", "production", false, "dashboard"},
		{ModeStage, "STAGING", "stage", true, "staging dashboard"},
		{ModePromote, "PROMOTE TO PROD", "promote", true, "dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.label, tt.mode.Label())
			assert.Equal(t, tt.name, tt.mode.String())
			assert.Equal(t, tt.theme, tt.mode.IncludesTheme())
			assert.Equal(t, tt.dashLabel, tt.mode.artifactLabel(KindDashboard))
		})
	}
}

func TestTarget(t *testing.T) {
	assert.True(t, errors.IsCode(Target{Host: "ha"}.validateAuth(), errors.ErrAuth))
	assert.True(t, errors.IsCode(Target{KeyPath: "k", Password: "p"}.validateAuth(), errors.ErrAuth))
	assert.NoError(t, Target{KeyPath: "k"}.validateAuth())
	assert.NoError(t, Target{Password: "p"}.validateAuth())

	assert.Equal(t, "root@ha", Target{Host: "ha", User: "root", Port: 22}.String())
	assert.Equal(t, "root@ha:2222", Target{Host: "ha", User: "root", Port: 2222}.String())
	assert.Equal(t, "ha", Target{Host: "ha"}.String())
}
