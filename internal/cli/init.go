package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/lovelace-tools/hadeploy/internal/config"
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/ui"
	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string // Where to write the config
	Host           string // Pre-specified host or SSH alias
	User           string
	Key            string
	Port           int
	Overwrite      bool // Overwrite existing config without asking
	NonInteractive bool // Skip prompts, use flags and defaults
}

// initDefaults are init values taken from the environment.
type initDefaults struct {
	Host           string
	User           string
	Key            string
	NonInteractive bool
}

func getInitDefaults() initDefaults {
	d := initDefaults{
		Host: os.Getenv("HADEPLOY_HOST"),
		User: os.Getenv("HADEPLOY_USER"),
		Key:  os.Getenv("HADEPLOY_KEY"),
	}
	if v := os.Getenv("HADEPLOY_NON_INTERACTIVE"); v == "1" || strings.EqualFold(v, "true") {
		d.NonInteractive = true
	}
	if os.Getenv("CI") != "" {
		d.NonInteractive = true
	}
	return d
}

// mergeInitOptions fills unset options from the environment. Flags win.
func mergeInitOptions(opts InitOptions, d initDefaults) InitOptions {
	if opts.Host == "" {
		opts.Host = d.Host
	}
	if opts.User == "" {
		opts.User = d.User
	}
	if opts.Key == "" {
		opts.Key = d.Key
	}
	if d.NonInteractive {
		opts.NonInteractive = true
	}
	return opts
}

// Init writes a new .hadeploy.yaml.
func Init(opts InitOptions, out io.Writer) error {
	configPath := opts.Path
	if configPath == "" {
		configPath = filepath.Join(".", config.ConfigFileName)
	}

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.Host = opts.Host
	cfg.User = opts.User
	cfg.Key = opts.Key
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}

	if opts.NonInteractive {
		if cfg.Host == "" || cfg.User == "" {
			return errors.New(errors.ErrConfig,
				"Host and user are required in non-interactive mode",
				"Provide --host and --user, or set HADEPLOY_HOST and HADEPLOY_USER")
		}
	} else {
		if cfg.Host == "" {
			cancelled, err := pickHost(cfg)
			if err != nil {
				return err
			}
			if cancelled {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := config.Save(configPath, cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Fprintf(out, "%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  hadeploy token set   - Store a Home Assistant token for API reloads")
	fmt.Fprintln(out, "  hadeploy --stage     - Try the dashboard as a staging copy")
	fmt.Fprintln(out, "  hadeploy --promote   - Deploy dashboard and theme to production")

	return nil
}

// pickHost offers the hosts of ~/.ssh/config. It reports whether the user
// cancelled; choosing manual entry leaves cfg untouched.
func pickHost(cfg *config.Config) (bool, error) {
	entries, err := sshutil.ParseSSHConfig()
	if err != nil || len(entries) == 0 {
		return false, nil
	}

	selected, cancelled, err := ui.PickSSHHost(sshHostInfos(entries))
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Host picker failed",
			"Pass --host to skip the picker")
	}
	if cancelled {
		return true, nil
	}
	if selected != nil {
		applyPickedHost(cfg, *selected)
	}
	return false, nil
}

func sshHostInfos(entries []sshutil.SSHHostEntry) []ui.SSHHostInfo {
	hosts := make([]ui.SSHHostInfo, len(entries))
	for i, e := range entries {
		hosts[i] = ui.SSHHostInfo{
			Alias:       e.Alias,
			Hostname:    e.Hostname,
			User:        e.User,
			Port:        e.Port,
			KeyPath:     e.KeyPath(),
			Description: e.Description(),
		}
	}
	return hosts
}

func applyPickedHost(cfg *config.Config, h ui.SSHHostInfo) {
	cfg.Host = h.Alias
	if h.User != "" {
		cfg.User = h.User
	}
	if port, err := strconv.Atoi(h.Port); err == nil && port > 0 {
		cfg.Port = port
	}
	if h.KeyPath != "" && cfg.Key == "" {
		cfg.Key = h.KeyPath
	}
}

func promptConfig(cfg *config.Config) error {
	if cfg.Key == "" {
		cfg.Key = sshutil.DefaultKeyPath()
	}

	required := func(name string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", name)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Home Assistant host").
				Description("Hostname, IP, or ~/.ssh/config alias").
				Placeholder("homeassistant.local").
				Value(&cfg.Host).
				Validate(required("host")),
			huh.NewInput().
				Title("SSH user").
				Placeholder("root").
				Value(&cfg.User).
				Validate(required("user")),
			huh.NewInput().
				Title("SSH private key").
				Description("Leave empty to use a password (--ask-password or HADEPLOY_PASSWORD)").
				Value(&cfg.Key),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Local dashboard file").
				Value(&cfg.Paths.LocalDashboard).
				Validate(required("local dashboard")),
			huh.NewInput().
				Title("Local theme file").
				Value(&cfg.Paths.LocalTheme),
			huh.NewInput().
				Title("Remote dashboard path").
				Description("Theme goes to themes/ beside the dashboard's directory").
				Value(&cfg.Paths.RemoteDashboard).
				Validate(required("remote dashboard path")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Production theme name").
				Description("The top-level key in your theme file").
				Value(&cfg.Themes.Production).
				Validate(required("production theme name")),
			huh.NewInput().
				Title("Staging theme name").
				Value(&cfg.Themes.Staging).
				Validate(required("staging theme name")),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}
	return nil
}

func newInitCmd(globals *globalFlags) *cobra.Command {
	opts := InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .hadeploy.yaml",
		Long: `Create a .hadeploy.yaml configuration in the current directory.

Offers the hosts from ~/.ssh/config, then asks for the dashboard paths and
theme names. In CI, or with --non-interactive, only flags and HADEPLOY_*
variables are used.

Examples:
  hadeploy init
  hadeploy init --host homeassistant.local --user root --non-interactive
  hadeploy init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := mergeInitOptions(opts, getInitDefaults())
			o.Path = globals.ConfigFile
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				o.NonInteractive = true
			}
			return Init(o, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Home Assistant host or SSH alias")
	cmd.Flags().StringVarP(&opts.User, "user", "u", "", "SSH user")
	cmd.Flags().StringVarP(&opts.Key, "key", "k", "", "SSH private key file")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "SSH port (default 22)")
	cmd.Flags().BoolVarP(&opts.Overwrite, "force", "f", false, "overwrite existing config")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "don't prompt")

	return cmd
}
