package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/lovelace-tools/hadeploy/internal/config"
	"github.com/lovelace-tools/hadeploy/internal/deploy"
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/keyring"
	"github.com/lovelace-tools/hadeploy/internal/logger"
	"github.com/lovelace-tools/hadeploy/internal/ui"
	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// dial opens the SSH session for a deployment. Tests swap it for a mock.
var dial deploy.DialFunc = deploy.DialSSH

func deployCommand(cmd *cobra.Command, globals *globalFlags, f *DeployFlags) error {
	mode, err := deploy.ModeFromFlags(f.Stage, f.Promote)
	if err != nil {
		return err
	}

	cfg, cfgPath, err := config.Resolve(globals.ConfigFile)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Can't determine the working directory", "")
	}
	if err := ApplyFlags(cfg, f, cmd.Flags().Changed, cwd); err != nil {
		return err
	}

	if f.AskPassword {
		password, err := promptPassword(os.Stdin, cmd.ErrOrStderr(), cfg.User, cfg.Host)
		if err != nil {
			return err
		}
		cfg.Password = password
	}
	pickCredential(cfg, cmd.Flags().Changed("key"), cmd.Flags().Changed("password") || f.AskPassword)

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.ValidateTarget(cfg); err != nil {
		return err
	}

	log := logger.NewEnvLogger("[deploy]")
	if cfgPath != "" {
		log.Debug("using config %s", cfgPath)
	}

	token := resolveToken(cfg, log)
	opts := BuildOptions(cfg, mode, f, token)

	d := deploy.New(
		deploy.PathDefaults{
			LocalDashboard:  cfg.Paths.LocalDashboard,
			LocalTheme:      cfg.Paths.LocalTheme,
			RemoteDashboard: cfg.Paths.RemoteDashboard,
		},
		deploy.Identifiers{
			Production: cfg.Themes.Production,
			Staging:    cfg.Themes.Staging,
		},
		deploy.WithDialer(dial),
		deploy.WithDisplay(ui.NewPhaseDisplay(cmd.OutOrStdout())),
		deploy.WithLogger(log),
	)

	res, err := d.Run(opts)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Debug("warning: %v", w)
	}
	log.Debug("run %s finished: %d uploaded, reload %s", res.RunID, len(res.Deployed), res.Reload.Outcome)
	return nil
}

// pickCredential leaves at most one SSH credential in cfg. A credential
// given on the command line replaces the other one from config; when both
// come from the same place the key wins.
func pickCredential(cfg *config.Config, keyOnCLI, passwordOnCLI bool) {
	if cfg.Key == "" || cfg.Password == "" {
		return
	}
	if passwordOnCLI && !keyOnCLI {
		cfg.Key = ""
		return
	}
	cfg.Password = ""
}

// ApplyFlags copies every flag the user set over the loaded config. Local
// paths given on the command line resolve against cwd.
func ApplyFlags(cfg *config.Config, f *DeployFlags, changed func(string) bool, cwd string) error {
	if changed("host") {
		cfg.Host = f.Host
	}
	if changed("user") {
		cfg.User = f.User
	}
	if changed("port") {
		cfg.Port = f.Port
	}
	if changed("key") {
		cfg.Key = config.ExpandTilde(f.Key)
	}
	if changed("password") {
		cfg.Password = f.Password
	}
	if changed("token") {
		cfg.Token = f.Token
	}

	if changed("local") {
		cfg.Paths.LocalDashboard = config.ResolveLocal(cwd, f.Local)
	}
	if changed("theme-local") {
		cfg.Paths.LocalTheme = config.ResolveLocal(cwd, f.ThemeLocal)
	}
	if changed("remote") {
		cfg.Paths.RemoteDashboard = config.ExpandRemote(f.Remote)
	}
	if changed("theme-remote") {
		cfg.Paths.RemoteTheme = config.ExpandRemote(f.ThemeRemote)
	}

	if f.NoBackup {
		cfg.Backup = false
	}
	if f.NoReload {
		cfg.ReloadEnabled = false
	}
	if f.Verify {
		cfg.Verify = true
	}
	if f.NoKeyring {
		cfg.Keyring = false
	}

	if changed("connect-timeout") {
		timeout, err := ParseTimeout(f.ConnectTimeout)
		if err != nil {
			return err
		}
		cfg.SSH.ConnectTimeout = timeout
	}
	if changed("host-key-policy") {
		cfg.SSH.HostKeyPolicy = f.HostKeyPolicy
	}

	return nil
}

// BuildOptions turns a merged config into workflow options.
func BuildOptions(cfg *config.Config, mode deploy.Mode, f *DeployFlags, token string) deploy.Options {
	return deploy.Options{
		Target: deploy.Target{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			KeyPath:  cfg.Key,
			Password: cfg.Password,
			Token:    token,
		},
		Mode:      mode,
		Paths:     deploy.PathOverrides{RemoteTheme: cfg.Paths.RemoteTheme},
		Theme:     f.Theme,
		Backup:    cfg.Backup,
		Reload:    cfg.ReloadEnabled,
		Verify:    cfg.Verify,
		CheckYAML: f.CheckYAML,
		ReloadOptions: deploy.ReloadOptions{
			APIURL:         cfg.Reload.APIURL,
			Commands:       cfg.Reload.Commands,
			Timeout:        cfg.Reload.Timeout,
			RefreshTimeout: cfg.Reload.RefreshTimeout,
			BrowserRefresh: cfg.Reload.BrowserRefresh,
			CheckConfig:    cfg.Reload.CheckConfig,
		},
		ConnectTimeout: cfg.SSH.ConnectTimeout,
		HostKeyPolicy:  sshutil.HostKeyPolicy(cfg.SSH.HostKeyPolicy),
		KnownHostsPath: cfg.SSH.KnownHosts,
	}
}

// resolveToken prefers an explicit token and falls back to the keyring.
// A keyring failure only costs the API reload, so it is logged, not returned.
func resolveToken(cfg *config.Config, log logger.Logger) string {
	if cfg.Token != "" || !cfg.Keyring {
		return cfg.Token
	}
	token, err := keyring.Get(cfg.Host)
	if err != nil {
		log.Debug("keyring lookup for %s: %v", cfg.Host, err)
		return ""
	}
	if token != "" {
		log.Debug("using token from the OS keyring for %s", cfg.Host)
	}
	return token
}

func promptPassword(in *os.File, out io.Writer, user, host string) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New(errors.ErrAuth,
			"--ask-password needs an interactive terminal",
			"Pass --password or set HADEPLOY_PASSWORD instead")
	}

	fmt.Fprintf(out, "SSH password for %s@%s: ", user, host)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrAuth, "Couldn't read the password", "")
	}
	return string(password), nil
}
