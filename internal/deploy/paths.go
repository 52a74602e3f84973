package deploy

import (
	"path"
	"path/filepath"
	"strings"
)

// StagingSuffix is inserted between stem and extension of staging paths.
const StagingSuffix = "-staging"

// PathDefaults are the locations used when the user doesn't override them.
type PathDefaults struct {
	LocalDashboard  string
	LocalTheme      string
	RemoteDashboard string
}

// PathOverrides are user-supplied paths; empty fields fall back to defaults.
type PathOverrides struct {
	LocalDashboard  string
	LocalTheme      string
	RemoteDashboard string
	RemoteTheme     string
}

// Paths is the resolved set of local and remote locations for one run.
type Paths struct {
	LocalDashboard  string
	LocalTheme      string
	RemoteDashboard string
	RemoteTheme     string
}

// Resolver turns overrides and a mode into concrete paths.
type Resolver struct {
	defaults PathDefaults
}

// NewResolver returns a Resolver using d for anything not overridden.
func NewResolver(d PathDefaults) *Resolver {
	return &Resolver{defaults: d}
}

// Resolve fills in defaults, derives the remote theme path when it isn't
// given, and moves both remote paths to their staging variants in ModeStage.
func (r *Resolver) Resolve(o PathOverrides, mode Mode) Paths {
	p := Paths{
		LocalDashboard:  firstNonEmpty(o.LocalDashboard, r.defaults.LocalDashboard),
		LocalTheme:      firstNonEmpty(o.LocalTheme, r.defaults.LocalTheme),
		RemoteDashboard: firstNonEmpty(o.RemoteDashboard, r.defaults.RemoteDashboard),
		RemoteTheme:     o.RemoteTheme,
	}

	if p.RemoteTheme == "" {
		p.RemoteTheme = ThemeRemotePath(p.RemoteDashboard, p.LocalTheme)
	}

	if mode == ModeStage {
		p.RemoteDashboard = StagingPath(p.RemoteDashboard)
		p.RemoteTheme = StagingPath(p.RemoteTheme)
	}

	return p
}

// ThemeRemotePath places the theme in the themes directory that sits beside
// the dashboard's directory:
//
//	/config/lovelace/my-dashboard.yaml + my_theme.yaml -> /config/themes/my_theme.yaml
//
// A dashboard path without a config directory (main.yaml) puts the theme
// under /themes.
func ThemeRemotePath(remoteDashboard, localTheme string) string {
	configDir := path.Dir(path.Dir(remoteDashboard))
	if configDir == "." {
		configDir = "/"
	}
	return path.Join(configDir, "themes", filepath.Base(localTheme))
}

// StagingPath returns dir/stem-staging.ext for dir/stem.ext, and
// dir/name-staging for a path without an extension.
func StagingPath(p string) string {
	stem, ext := splitExt(p)
	return stem + StagingSuffix + ext
}

// splitExt splits p before the last dot of its final element. A dot that
// only has dots before it (".hidden", "..x") doesn't start an extension.
func splitExt(p string) (stem, ext string) {
	sep := strings.LastIndex(p, "/")
	dot := strings.LastIndex(p, ".")
	if dot <= sep {
		return p, ""
	}
	if strings.Trim(p[sep+1:dot], ".") == "" {
		return p, ""
	}
	return p[:dot], p[dot:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
