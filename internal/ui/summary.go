package ui

import (
	"fmt"
	"io"
	"strings"
)

// ManualReloadUI is the menu path for reloading YAML configuration by hand.
const ManualReloadUI = "Settings → Server Controls → YAML Configuration Reloading"

// ManualReloadSSH is the supervisor command for reloading over SSH.
const ManualReloadSSH = "hassio homeassistant reload core_config"

// RenderDeploySummary formats the final success line.
// Shows: ✓ Deployed successfully (STAGING): staging dashboard, staging theme
func RenderDeploySummary(mode string, labels []string) string {
	return fmt.Sprintf("%s Deployed successfully (%s): %s",
		SuccessStyle().Render(SymbolSuccess),
		mode,
		strings.Join(labels, ", "),
	)
}

// RenderManualReload writes instructions for reloading by hand. The SSH
// variant is included when the user turned automatic reload off.
func RenderManualReload(w io.Writer, includeSSH bool) {
	muted := MutedStyle()
	fmt.Fprintf(w, "  %s %s\n", muted.Render("Via UI:"), ManualReloadUI)
	if includeSSH {
		fmt.Fprintf(w, "  %s %s\n", muted.Render("Via SSH:"), ManualReloadSSH)
	}
}
