package cli

import (
	"fmt"
	"time"

	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/spf13/cobra"
)

// DeployFlags holds the flags of the root (deploy) command.
type DeployFlags struct {
	Host        string
	User        string
	Port        int
	Key         string
	Password    string
	AskPassword bool
	Token       string

	Local       string
	Remote      string
	Theme       bool
	ThemeLocal  string
	ThemeRemote string

	Stage   bool
	Promote bool

	NoReload  bool
	NoBackup  bool
	Verify    bool
	CheckYAML bool
	NoKeyring bool

	ConnectTimeout string
	HostKeyPolicy  string
}

// AddDeployFlags registers the deploy flags on cmd.
func AddDeployFlags(cmd *cobra.Command, f *DeployFlags) {
	fs := cmd.Flags()

	fs.StringVar(&f.Host, "host", "", "Home Assistant host, IP or ~/.ssh/config alias")
	fs.StringVarP(&f.User, "user", "u", "", "SSH user")
	fs.IntVarP(&f.Port, "port", "p", 22, "SSH port")
	fs.StringVarP(&f.Key, "key", "k", "", "SSH private key file")
	fs.StringVar(&f.Password, "password", "", "SSH password (prefer --ask-password or HADEPLOY_PASSWORD)")
	fs.BoolVar(&f.AskPassword, "ask-password", false, "prompt for the SSH password")
	fs.StringVar(&f.Token, "token", "", "Home Assistant long-lived access token for API reloads")

	fs.StringVar(&f.Local, "local", "", "local dashboard file")
	fs.StringVar(&f.Remote, "remote", "", "remote dashboard path")
	fs.BoolVar(&f.Theme, "theme", false, "also deploy the theme (implied by --stage and --promote)")
	fs.StringVar(&f.ThemeLocal, "theme-local", "", "local theme file")
	fs.StringVar(&f.ThemeRemote, "theme-remote", "", "remote theme path (default: themes/ beside the dashboard's directory)")

	fs.BoolVar(&f.Stage, "stage", false, "deploy *-staging copies using the staging theme name")
	fs.BoolVar(&f.Promote, "promote", false, "deploy dashboard and theme to production")

	fs.BoolVar(&f.NoReload, "no-reload", false, "don't reload Home Assistant after uploading")
	fs.BoolVar(&f.NoBackup, "no-backup", false, "don't back up remote files before overwriting")
	fs.BoolVar(&f.Verify, "verify", false, "check each remote file's size after upload")
	fs.BoolVar(&f.CheckYAML, "check-yaml", false, "refuse to upload files that aren't valid YAML")
	fs.BoolVar(&f.NoKeyring, "no-keyring", false, "don't look the token up in the OS keyring")

	fs.StringVar(&f.ConnectTimeout, "connect-timeout", "", "SSH connect timeout (e.g., 5s, 1m)")
	fs.StringVar(&f.HostKeyPolicy, "host-key-policy", "", "strict, accept-new or insecure")

	cmd.MarkFlagsMutuallyExclusive("password", "ask-password")
}

// ParseTimeout parses a duration flag. Returns zero duration if the flag is empty.
func ParseTimeout(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration <= 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Timeout must be positive, got %s", flag),
			"Try something like 10s.")
	}
	return duration, nil
}
