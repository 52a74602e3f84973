// Package deploy runs a dashboard deployment: it resolves where each
// artifact goes, rewrites content for staging, backs up and uploads the
// files over one SSH session, and asks Home Assistant to reload.
package deploy

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lovelace-tools/hadeploy/internal/errors"
	"github.com/lovelace-tools/hadeploy/internal/logger"
	"github.com/lovelace-tools/hadeploy/internal/ui"
	"github.com/lovelace-tools/hadeploy/internal/util"
	"github.com/lovelace-tools/hadeploy/pkg/sshutil"
	"github.com/twpayne/go-vfs"
	"gopkg.in/yaml.v3"
)

// BackupSuffix is appended to a remote path to name its backup copy.
const BackupSuffix = ".backup"

const noBackupMarker = "No existing file to backup"

// DialFunc opens a remote session.
type DialFunc func(opts sshutil.ConnectOptions) (sshutil.RemoteSession, error)

// DialSSH connects with sshutil.Connect.
func DialSSH(opts sshutil.ConnectOptions) (sshutil.RemoteSession, error) {
	client, err := sshutil.Connect(opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Options describes one deployment run.
type Options struct {
	Target Target
	Mode   Mode
	Paths  PathOverrides

	// Theme deploys the theme in production mode too.
	Theme bool

	Backup    bool
	Reload    bool
	Verify    bool
	CheckYAML bool

	ReloadOptions ReloadOptions

	ConnectTimeout time.Duration
	HostKeyPolicy  sshutil.HostKeyPolicy
	KnownHostsPath string
}

// Result summarizes a run.
type Result struct {
	RunID    string
	Mode     Mode
	Paths    Paths
	Deployed []Artifact
	Reload   ReloadResult

	// Warnings are the non-fatal problems (backups, reload) hit along the way.
	Warnings []error
}

// Labels returns the labels of the deployed artifacts in upload order.
func (r *Result) Labels() []string {
	labels := make([]string, len(r.Deployed))
	for i, a := range r.Deployed {
		labels[i] = a.Label
	}
	return labels
}

// Deployer runs deployments. A zero Deployer is not usable; use New.
type Deployer struct {
	resolver    *Resolver
	transformer *Transformer
	dial        DialFunc
	fs          vfs.FS
	display     *ui.PhaseDisplay
	log         logger.Logger
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithDialer replaces the SSH dialer.
func WithDialer(dial DialFunc) Option {
	return func(d *Deployer) { d.dial = dial }
}

// WithFS sets the filesystem local artifacts are read from.
func WithFS(fs vfs.FS) Option {
	return func(d *Deployer) { d.fs = fs }
}

// WithDisplay sets where progress is printed.
func WithDisplay(display *ui.PhaseDisplay) Option {
	return func(d *Deployer) { d.display = display }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logger.Logger) Option {
	return func(d *Deployer) { d.log = log }
}

// New returns a Deployer using defaults for unspecified paths and ids for
// staging rewrites.
func New(defaults PathDefaults, ids Identifiers, opts ...Option) *Deployer {
	d := &Deployer{
		resolver:    NewResolver(defaults),
		transformer: NewTransformer(ids),
		dial:        DialSSH,
		fs:          vfs.OSFS,
		display:     ui.NewPhaseDisplay(os.Stdout),
		log:         logger.Noop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run deploys according to opts. Everything that can be checked locally is
// checked before connecting. Once connected, the session is closed exactly
// once whatever happens. Backup and reload problems are reported in
// Result.Warnings; a returned error means the deployment failed.
func (d *Deployer) Run(opts Options) (*Result, error) {
	res := &Result{
		RunID: uuid.NewString(),
		Mode:  opts.Mode,
	}

	logger.RegisterSecret(opts.Target.Password)
	logger.RegisterSecret(opts.Target.Token)

	d.log.Debug("run %s: mode=%s target=%s", res.RunID, opts.Mode, opts.Target)

	if err := opts.Target.validateAuth(); err != nil {
		return res, err
	}

	artifacts, paths, err := d.plan(opts)
	if err != nil {
		return res, err
	}
	res.Paths = paths

	session, err := d.connect(opts)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			d.log.Debug("close: %v", cerr)
		}
		d.display.Success("Disconnected from server")
	}()

	for i, a := range artifacts {
		if i > 0 {
			d.display.Newline()
		}

		if opts.Backup {
			if werr := d.backup(session, a, opts.ReloadOptions.Timeout); werr != nil {
				res.Warnings = append(res.Warnings, werr)
			}
		}

		if err := d.upload(session, a, opts.Verify); err != nil {
			return res, err
		}
		res.Deployed = append(res.Deployed, a)
	}

	d.display.Divider()
	d.display.Info(ui.RenderDeploySummary(opts.Mode.Label(), res.Labels()))
	d.display.Newline()

	if !opts.Reload {
		res.Reload = ReloadResult{Outcome: ReloadSkipped}
		d.display.Info("Note: Automatic reload skipped. To reload YAML configs:")
		ui.RenderManualReload(d.display.Writer(), true)
		return res, nil
	}

	ro := opts.ReloadOptions
	ro.Token = opts.Target.Token
	res.Reload = NewReloader(session, ro, d.display, d.log).Reload()
	if res.Reload.Err != nil {
		res.Warnings = append(res.Warnings, res.Reload.Err)
	}

	return res, nil
}

// plan resolves paths, checks local files and prepares staged content.
// It never touches the network.
func (d *Deployer) plan(opts Options) ([]Artifact, Paths, error) {
	paths := d.resolver.Resolve(opts.Paths, opts.Mode)

	artifacts := []Artifact{{
		Kind:       KindDashboard,
		Label:      opts.Mode.artifactLabel(KindDashboard),
		LocalPath:  paths.LocalDashboard,
		RemotePath: paths.RemoteDashboard,
	}}
	if opts.Theme || opts.Mode.IncludesTheme() {
		artifacts = append(artifacts, Artifact{
			Kind:       KindTheme,
			Label:      opts.Mode.artifactLabel(KindTheme),
			LocalPath:  paths.LocalTheme,
			RemotePath: paths.RemoteTheme,
		})
	}

	for _, a := range artifacts {
		if err := d.checkLocal(a); err != nil {
			return nil, paths, err
		}
	}

	for i := range artifacts {
		a := &artifacts[i]

		if opts.Mode == ModeStage {
			data, err := d.readLocal(*a)
			if err != nil {
				return nil, paths, err
			}
			a.Content = []byte(d.transformer.Apply(a.Kind, string(data)))
		}

		if opts.CheckYAML {
			if err := d.checkYAML(*a); err != nil {
				return nil, paths, err
			}
		}
	}

	return artifacts, paths, nil
}

func (d *Deployer) checkLocal(a Artifact) error {
	if a.LocalPath == "" || a.RemotePath == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("The %s has no local or remote path", a.Label),
			"Set paths in .hadeploy.yaml or pass --local/--remote")
	}

	info, err := d.fs.Stat(a.LocalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.ErrLocalFile,
				fmt.Sprintf("Local %s file not found: %s", a.Kind, a.LocalPath),
				localFileSuggestion(a.Kind))
		}
		return errors.WrapWithCode(err, errors.ErrLocalFile,
			fmt.Sprintf("Can't read local %s file: %s", a.Kind, a.LocalPath),
			"Check the file permissions")
	}
	if info.IsDir() {
		return errors.New(errors.ErrLocalFile,
			fmt.Sprintf("Local %s path is a directory: %s", a.Kind, a.LocalPath),
			"Point it at the YAML file itself")
	}
	return nil
}

func localFileSuggestion(k Kind) string {
	if k == KindTheme {
		return "Pass --theme-local <file>, or set paths.local_theme in .hadeploy.yaml"
	}
	return "Pass --local <file>, or set paths.local_dashboard in .hadeploy.yaml"
}

func (d *Deployer) readLocal(a Artifact) ([]byte, error) {
	data, err := d.fs.ReadFile(a.LocalPath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrLocalFile,
			fmt.Sprintf("Can't read local %s file: %s", a.Kind, a.LocalPath),
			"Check the file permissions")
	}
	return data, nil
}

// checkYAML parses the content that will be uploaded. Home Assistant tags
// such as !include and !secret are kept as tagged nodes and pass.
func (d *Deployer) checkYAML(a Artifact) error {
	data := a.Content
	if !a.InMemory() {
		var err error
		if data, err = d.readLocal(a); err != nil {
			return err
		}
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return errors.WrapWithCode(err, errors.ErrLocalFile,
			fmt.Sprintf("The %s isn't valid YAML: %s", a.Kind, a.LocalPath),
			"Fix the syntax error, or drop --check-yaml to upload anyway")
	}
	return nil
}

func (d *Deployer) connect(opts Options) (sshutil.RemoteSession, error) {
	t := opts.Target
	start := time.Now()
	d.display.RenderProgress("Connecting to " + t.Host)

	session, err := d.dial(sshutil.ConnectOptions{
		Host:           t.Host,
		Port:           t.Port,
		User:           t.User,
		KeyPath:        t.KeyPath,
		Password:       t.Password,
		Timeout:        opts.ConnectTimeout,
		HostKeyPolicy:  opts.HostKeyPolicy,
		KnownHostsPath: opts.KnownHostsPath,
		FS:             d.fs,
		Logger:         d.log,
	})
	if err != nil {
		d.display.RenderFailed("Connection failed", time.Since(start))
		var hdErr *errors.Error
		if stderrors.As(err, &hdErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't connect to %s", t.Host),
			"Check the host, port and credentials")
	}

	d.display.RenderSuccess("Connected to "+t.Host, time.Since(start))
	d.log.Debug("connected to %s", session.GetAddress())
	return session, nil
}

// backup copies the current remote file to <path>.backup if there is one.
// It shares the per-command timeout with reload. Failures, including a
// failed cp of an existing file, come back as ErrBackup warnings.
func (d *Deployer) backup(session sshutil.RemoteSession, a Artifact, timeout time.Duration) error {
	d.display.Info(fmt.Sprintf("Creating backup of existing %s...", a.Label))

	target := util.ShellQuotePreserveTilde(a.RemotePath)
	backupPath := a.RemotePath + BackupSuffix
	cmd := fmt.Sprintf("if test -f %s; then cp %s %s; else echo %s; fi",
		target, target, util.ShellQuotePreserveTilde(backupPath), util.ShellQuote(noBackupMarker))

	stdout, stderr, code, err := session.ExecTimeout(cmd, timeout)
	if err == nil && code != 0 {
		err = fmt.Errorf("exit %d: %s", code, strings.TrimSpace(string(stderr)))
	}
	if err != nil {
		d.display.Warn("Backup warning: " + firstLine(err.Error()))
		return errors.WrapWithCode(err, errors.ErrBackup,
			fmt.Sprintf("Couldn't back up %s", a.RemotePath),
			"The upload went ahead without a backup")
	}

	if strings.Contains(string(stdout), noBackupMarker) {
		d.display.Note(noBackupMarker)
		return nil
	}
	d.display.Success("Backup created at " + backupPath)
	return nil
}

// upload sends one artifact, from memory when it was transformed.
func (d *Deployer) upload(session sshutil.RemoteSession, a Artifact, verify bool) error {
	d.display.Transfer(a.Label, a.LocalPath, a.RemotePath)

	var (
		n   int64
		err error
	)
	if a.InMemory() {
		n, err = session.UploadContent(a.Content, a.RemotePath)
	} else {
		n, err = session.UploadFile(a.LocalPath, a.RemotePath)
	}

	if err == nil && verify {
		err = d.verify(session, a, n)
	}

	if err != nil {
		d.display.Fail(fmt.Sprintf("%s upload failed: %s", util.Capitalize(a.Label), firstLine(err.Error())))
		var hdErr *errors.Error
		if stderrors.As(err, &hdErr) && (hdErr.Code == errors.ErrTransfer || hdErr.Code == errors.ErrLocalFile) {
			return err
		}
		return errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Upload of %s to %s failed", a.Label, a.RemotePath),
			"Check that the remote directory exists and is writable")
	}

	d.log.Debug("uploaded %d bytes to %s", n, a.RemotePath)
	d.display.Success(util.Capitalize(a.Label) + " uploaded successfully")
	return nil
}

func (d *Deployer) verify(session sshutil.RemoteSession, a Artifact, sent int64) error {
	size, err := session.RemoteSize(a.RemotePath)
	if err != nil {
		return err
	}
	if size != sent {
		return errors.New(errors.ErrTransfer,
			fmt.Sprintf("Remote %s is %d bytes, sent %d", a.RemotePath, size, sent),
			"Check free disk space on the Home Assistant host and deploy again")
	}
	d.log.Debug("verified %s (%d bytes)", a.RemotePath, size)
	return nil
}
