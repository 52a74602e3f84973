package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/logger"
	"github.com/lovelace-tools/hadeploy/internal/ui"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags every subcommand sees.
type globalFlags struct {
	ConfigFile string
	Verbose    bool
	NoColor    bool
}

// NewRootCmd builds the hadeploy command tree. The root command itself deploys.
func NewRootCmd() *cobra.Command {
	globals := &globalFlags{}
	deployFlags := &DeployFlags{}

	cmd := &cobra.Command{
		Use:   "hadeploy",
		Short: "Deploy a Home Assistant dashboard and theme over SSH",
		Long: `Upload a Lovelace dashboard (and optionally its theme) to a Home Assistant
host over SSH, back up what was there, and reload the YAML configuration.

Modes:
  (default)   upload the dashboard to its production path
  --stage     upload dashboard and theme side by side as *-staging copies,
              rewritten to use the staging theme name
  --promote   upload dashboard and theme to their production paths

Examples:
  hadeploy --host homeassistant.local --user root --key ~/.ssh/id_ed25519
  hadeploy --stage
  hadeploy --promote --token "$HA_TOKEN"
  hadeploy --theme --no-reload`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if globals.NoColor || os.Getenv("NO_COLOR") != "" {
				ui.DisableColors()
			}
			if globals.Verbose {
				logger.EnableDebug(true)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return deployCommand(cmd, globals, deployFlags)
		},
	}

	cmd.SuggestionsMinimumDistance = 2

	cmd.PersistentFlags().StringVar(&globals.ConfigFile, "config", "", "config file (default: .hadeploy.yaml in this or a parent directory)")
	cmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "print debug logging to stderr")
	cmd.PersistentFlags().BoolVar(&globals.NoColor, "no-color", false, "disable colored output")

	AddDeployFlags(cmd, deployFlags)

	cmd.AddCommand(
		newInitCmd(globals),
		newTokenCmd(globals),
		newConfigCmd(globals),
		newVersionCmd(),
		newCompletionCmd(),
	)

	return cmd
}

// Execute runs the CLI and exits with the code for the returned error.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		printError(os.Stderr, err)
	}
	os.Exit(ExitCode(err))
}

// ExitCode maps a command error to a process exit code. Warnings never
// reach here as errors, so anything non-nil is a failed run.
func ExitCode(err error) int {
	if err == nil || errors.IsWarning(err) {
		return 0
	}
	return 1
}

func printError(w io.Writer, err error) {
	var hdErr *errors.Error
	if stderrors.As(err, &hdErr) {
		fmt.Fprintln(w)
		fmt.Fprint(w, logger.Redact(hdErr.Error()))
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), logger.Redact(err.Error()))
}
