package deploy

import (
	"github.com/lovelace-tools/hadeploy/internal/errors"
)

// Mode selects where artifacts go and whether their content is rewritten.
type Mode int

const (
	// ModeProduction uploads the local files verbatim to the production paths.
	ModeProduction Mode = iota
	// ModeStage uploads transformed copies next to production with a -staging suffix.
	ModeStage
	// ModePromote uploads dashboard and theme verbatim to the production paths.
	ModePromote
)

// ModeFromFlags picks the mode from the --stage and --promote flags.
// Setting both is a configuration error.
func ModeFromFlags(stage, promote bool) (Mode, error) {
	switch {
	case stage && promote:
		return ModeProduction, errors.New(errors.ErrConfig,
			"--stage and --promote can't be used together",
			"Stage first to preview, then promote once it looks right")
	case stage:
		return ModeStage, nil
	case promote:
		return ModePromote, nil
	default:
		return ModeProduction, nil
	}
}

// String returns the lower-case mode name.
func (m Mode) String() string {
	switch m {
	case ModeStage:
		return "stage"
	case ModePromote:
		return "promote"
	default:
		return "production"
	}
}

// Label is the name shown in the deployment summary.
func (m Mode) Label() string {
	switch m {
	case ModeStage:
		return "STAGING"
	case ModePromote:
		return "PROMOTE TO PROD"
	default:
		return "PRODUCTION"
	}
}

// IncludesTheme reports whether the mode always deploys the theme.
func (m Mode) IncludesTheme() bool {
	return m == ModeStage || m == ModePromote
}

// artifactLabel names an artifact in progress lines and the summary.
func (m Mode) artifactLabel(k Kind) string {
	if m == ModeStage {
		return "staging " + k.String()
	}
	return k.String()
}
