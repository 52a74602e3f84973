package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/lovelace-tools/hadeploy/internal/config"
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/ui"
	"github.com/lovelace-tools/hadeploy/internal/util"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(globals *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit .hadeploy.yaml",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Resolve(globals.ConfigFile)
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), cfg, path)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value, e.g. 'reload.timeout 45s'",
		Long: `Set one value in the config file, keeping its comments and layout.

Examples:
  hadeploy config set host homeassistant.local
  hadeploy config set reload.check_config true
  hadeploy config set paths.remote_dashboard /config/dashboards/home.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Find(globals.ConfigFile)
			if err != nil {
				return err
			}
			if path == "" {
				return errors.New(errors.ErrConfig,
					"No config file to edit",
					"Create one with 'hadeploy init'")
			}
			if err := setConfigValue(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s in %s\n", ui.SymbolSuccess, args[0], path)
			return nil
		},
	}

	cmd.AddCommand(showCmd, setCmd)
	return cmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) error {
	masked := *cfg
	masked.Password = util.MaskSecret(cfg.Password)
	masked.Token = util.MaskSecret(cfg.Token)

	if path == "" {
		fmt.Fprintln(w, "# no config file found, showing defaults")
	} else {
		fmt.Fprintf(w, "# %s\n", path)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render the config", "")
	}
	return enc.Close()
}

// setConfigValue edits path and rolls the edit back if the result no longer
// loads or validates.
func setConfigValue(path, key, value string) error {
	before, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't read %s", path), "")
	}

	if err := config.SetValue(path, key, value); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Can't set %s", key),
			"Keys are dotted paths such as 'reload.timeout' or 'paths.local_theme'")
	}

	cfg, err := config.Load(path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		if rerr := os.WriteFile(path, before, 0o600); rerr != nil {
			return errors.WrapWithCode(rerr, errors.ErrConfig,
				fmt.Sprintf("Setting %s broke %s and restoring it failed", key, path), "")
		}
		return err
	}
	return nil
}
