package cli

import (
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion scripts for hadeploy.

Examples:
  # Bash
  hadeploy completion bash > /etc/bash_completion.d/hadeploy

  # Zsh
  hadeploy completion zsh > "${fpath[1]}/_hadeploy"

  # Fish
  hadeploy completion fish > ~/.config/fish/completions/hadeploy.fish`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletion(out)
			default:
				return errors.New(errors.ErrConfig,
					"Unknown shell: "+args[0],
					"Supported shells: bash, zsh, fish, powershell")
			}
		},
	}
}
