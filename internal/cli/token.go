package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lovelace-tools/hadeploy/internal/config"
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/keyring"
	"github.com/lovelace-tools/hadeploy/internal/ui"
	"github.com/lovelace-tools/hadeploy/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newTokenCmd(globals *globalFlags) *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the Home Assistant access token in the OS keyring",
		Long: `Store, show or remove the long-lived access token used for API reloads.

Tokens are kept in the OS keyring (macOS Keychain, Secret Service, Windows
Credential Manager) under the host they belong to. A token passed with
--token or HADEPLOY_TOKEN always wins over the keyring.

Examples:
  hadeploy token set
  echo "$HA_TOKEN" | hadeploy token set --host homeassistant.local
  hadeploy token get
  hadeploy token delete`,
	}
	cmd.PersistentFlags().StringVar(&host, "host", "", "host the token belongs to (default: host from config)")

	hostFor := func() (string, error) {
		return tokenHost(globals.ConfigFile, host)
	}

	setCmd := &cobra.Command{
		Use:   "set [token]",
		Short: "Store a token (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hostFor()
			if err != nil {
				return err
			}
			var token string
			if len(args) == 1 {
				token = args[0]
			} else if token, err = readToken(os.Stdin, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if err := keyring.Set(h, token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Token stored for %s\n", ui.SymbolSuccess, h)
			return nil
		},
	}

	var show bool
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the stored token (masked unless --show)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hostFor()
			if err != nil {
				return err
			}
			token, err := keyring.Get(h)
			if err != nil {
				return err
			}
			if token == "" {
				return errors.New(errors.ErrConfig,
					fmt.Sprintf("No token stored for %s", h),
					"Store one with 'hadeploy token set'")
			}
			if !show {
				token = util.MaskSecret(token)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	getCmd.Flags().BoolVar(&show, "show", false, "print the token in full")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hostFor()
			if err != nil {
				return err
			}
			if err := keyring.Delete(h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Token removed for %s\n", ui.SymbolSuccess, h)
			return nil
		},
	}

	cmd.AddCommand(setCmd, getCmd, deleteCmd)
	return cmd
}

// tokenHost returns the --host flag, or the host from the config.
func tokenHost(configFile, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, _, err := config.Resolve(configFile)
	if err != nil {
		return "", err
	}
	if cfg.Host == "" {
		return "", errors.New(errors.ErrConfig,
			"No host to store the token under",
			"Pass --host or set 'host' in .hadeploy.yaml")
	}
	return cfg.Host, nil
}

// readToken prompts without echo on a terminal and reads one line otherwise.
func readToken(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Home Assistant token: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", errors.WrapWithCode(err, errors.ErrConfig, "Couldn't read the token", "")
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.WrapWithCode(err, errors.ErrConfig, "Couldn't read the token from stdin", "")
	}
	return strings.TrimSpace(line), nil
}
