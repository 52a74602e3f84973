// Package ui provides terminal output for hadeploy.
//
// PhaseDisplay renders the steps of a deployment (connect, backup, upload,
// reload) with status symbols, and the summary helpers format the final
// result and manual reload instructions. Styling uses Lip Gloss with the
// basic ANSI palette; DisableColors switches to plain text for --no-color.
//
//	pd := ui.NewPhaseDisplay(os.Stdout)
//	pd.RenderProgress("Connecting to homeassistant.local")
//	pd.RenderSuccess("Connected", 300*time.Millisecond)
//	pd.Transfer("dashboard", "my-dashboard.yaml", "/config/lovelace/my-dashboard.yaml")
//	pd.Success("Dashboard uploaded successfully")
package ui
