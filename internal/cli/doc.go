// Package cli implements the hadeploy command-line interface.
//
// The root command deploys; everything else is housekeeping:
//
//	hadeploy [flags]          - Deploy the dashboard (and theme)
//	hadeploy init             - Create .hadeploy.yaml
//	hadeploy token set|get|delete - Manage the API token in the OS keyring
//	hadeploy config show|set  - Inspect or edit the config file
//	hadeploy version          - Print build information
//	hadeploy completion       - Generate shell completions
//
// # Flag Handling
//
// Settings are layered: built-in defaults, then .hadeploy.yaml, then
// HADEPLOY_* environment variables (both via viper in internal/config), then
// flags. Only flags the user actually set override the config, so a default
// flag value never masks a configured one. ApplyFlags does the merge and
// BuildOptions turns the result into deploy.Options.
//
// --stage and --promote are mutually exclusive; the check lives in
// deploy.ModeFromFlags so it runs before the config is even loaded.
//
// # Exit Codes
//
// Execute exits 0 on success, including runs where only the backup or the
// reload failed, and 1 on any fatal error.
package cli
